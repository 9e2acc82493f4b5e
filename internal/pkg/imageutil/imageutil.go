// Package imageutil prepares brand images for wallet passes.
package imageutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder.
	"image/png"
	"io"
	"net/http"
	"os"

	"golang.org/x/image/draw"
)

const (
	// MaxSourceBytes caps the size of a downloaded logo.
	MaxSourceBytes = 5 << 20
	// MaxSourcePixels caps the canvas a logo may declare before it is
	// decoded.
	MaxSourcePixels = 4096 * 4096
)

var ErrTooLarge = errors.New("imageutil: source image too large")

// Rendition is one output size.
type Rendition struct {
	Name   string
	Width  int
	Height int
}

// LogoRenditions are the wallet logo sizes at 1x, 2x and 3x.
var LogoRenditions = []Rendition{
	{Name: "logo.png", Width: 160, Height: 50},
	{Name: "logo@2x.png", Width: 320, Height: 100},
	{Name: "logo@3x.png", Width: 480, Height: 150},
}

type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{client: client}
}

// FetchLogo downloads the image at url and renders it at every logo size.
// The download is spooled to a temp file that is removed before return.
func (f *Fetcher) FetchLogo(ctx context.Context, url string) (map[string][]byte, error) {
	src, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	return Render(src, LogoRenditions)
}

func (f *Fetcher) download(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("f.client.Do -> %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imageutil: fetch %s: status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "brand-logo-*")
	if err != nil {
		return nil, fmt.Errorf("os.CreateTemp -> %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("io.Copy -> %w", err)
	}
	if n > MaxSourceBytes {
		return nil, ErrTooLarge
	}

	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tmp.Seek -> %w", err)
	}

	cfg, _, err := image.DecodeConfig(tmp)
	if err != nil {
		return nil, fmt.Errorf("image.DecodeConfig -> %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tmp.Seek -> %w", err)
	}

	img, _, err := image.Decode(tmp)
	if err != nil {
		return nil, fmt.Errorf("image.Decode -> %w", err)
	}

	return img, nil
}

// Render scales src to fit inside each rendition, centred on a transparent
// canvas, and encodes the results as PNG.
func Render(src image.Image, sizes []Rendition) (map[string][]byte, error) {
	out := make(map[string][]byte, len(sizes))
	for _, r := range sizes {
		dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
		draw.CatmullRom.Scale(dst, fitRect(src.Bounds(), r.Width, r.Height), src, src.Bounds(), draw.Over, nil)

		var buf bytes.Buffer
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("png.Encode -> %w", err)
		}
		out[r.Name] = buf.Bytes()
	}

	return out, nil
}

func fitRect(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rect(0, 0, w, h)
	}

	dw, dh := w, sh*w/sw
	if dh > h {
		dw, dh = sw*h/sh, h
	}
	x0, y0 := (w-dw)/2, (h-dh)/2

	return image.Rect(x0, y0, x0+dw, y0+dh)
}
