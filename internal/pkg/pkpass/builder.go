package pkpass

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Config struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	CertPath           string
	KeyPath            string
	WWDRPath           string
	// ModelDir holds the static images (icon.png is mandatory).
	ModelDir string
}

// Content is the per-pass input to Build.
type Content struct {
	SerialNumber     string
	OrganizationName string
	Description      string
	LogoText         string
	ForegroundColor  string
	BackgroundColor  string
	LabelColor       string
	StoreCard        StoreCard
	ExpiresAt        time.Time
	Voided           bool
	// Images replaces or adds bundled images by file name, e.g. "logo@2x.png".
	Images map[string][]byte
}

// Archive is a built pass. Files keeps every bundled entry so callers can
// inspect the descriptor and manifest without unzipping.
type Archive struct {
	Data  []byte
	Files map[string][]byte
}

func (a Archive) Manifest() []byte   { return a.Files[manifestFile] }
func (a Archive) Signature() []byte  { return a.Files[signatureFile] }
func (a Archive) Descriptor() []byte { return a.Files[descriptorFile] }

type Builder struct {
	conf Config
}

func NewBuilder(conf Config) *Builder {
	return &Builder{conf: conf}
}

// Build assembles and signs a pass. Errors wrap ErrAssetNotFound,
// ErrMissingCredentials or ErrBuild.
func (b *Builder) Build(ctx context.Context, c Content) (Archive, error) {
	if err := ctx.Err(); err != nil {
		return Archive{}, fmt.Errorf("%w: %v", ErrBuild, err)
	}

	files, err := b.loadModel()
	if err != nil {
		return Archive{}, err
	}

	creds, err := LoadCredentials(b.conf.CertPath, b.conf.KeyPath, b.conf.WWDRPath)
	if err != nil {
		return Archive{}, err
	}

	for name, img := range c.Images {
		files[name] = img
	}

	descriptor, err := b.descriptor(c)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	files[descriptorFile] = descriptor

	manifest, err := Manifest(files)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	files[manifestFile] = manifest

	signature, err := Sign(manifest, creds)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	files[signatureFile] = signature

	data, err := zipFiles(files)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %v", ErrBuild, err)
	}

	return Archive{Data: data, Files: files}, nil
}

func (b *Builder) loadModel() (map[string][]byte, error) {
	if b.conf.ModelDir == "" {
		return nil, fmt.Errorf("%w: model directory not configured", ErrAssetNotFound)
	}

	entries, err := os.ReadDir(b.conf.ModelDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: model directory %s", ErrAssetNotFound, b.conf.ModelDir)
		}
		return nil, fmt.Errorf("%w: read model directory: %v", ErrBuild, err)
	}

	files := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.conf.ModelDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrBuild, e.Name(), err)
		}
		files[e.Name()] = data
	}

	if _, ok := files[iconFile]; !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrAssetNotFound, iconFile, b.conf.ModelDir)
	}

	return files, nil
}

func (b *Builder) descriptor(c Content) ([]byte, error) {
	fg, err := CSSColor(c.ForegroundColor)
	if err != nil {
		return nil, err
	}
	bg, err := CSSColor(c.BackgroundColor)
	if err != nil {
		return nil, err
	}
	label, err := CSSColor(c.LabelColor)
	if err != nil {
		return nil, err
	}

	barcode := QRBarcode(c.SerialNumber)
	d := Descriptor{
		FormatVersion:      1,
		PassTypeIdentifier: b.conf.PassTypeIdentifier,
		SerialNumber:       c.SerialNumber,
		TeamIdentifier:     b.conf.TeamIdentifier,
		OrganizationName:   c.OrganizationName,
		Description:        c.Description,
		LogoText:           c.LogoText,
		ForegroundColor:    fg,
		BackgroundColor:    bg,
		LabelColor:         label,
		Barcode:            &barcode,
		Barcodes:           []Barcode{barcode},
		StoreCard:          c.StoreCard,
		Voided:             c.Voided,
	}
	if !c.ExpiresAt.IsZero() {
		d.ExpirationDate = c.ExpiresAt.UTC().Format(time.RFC3339)
	}

	return json.Marshal(d)
}

// Manifest returns manifest.json for the given files. Keys are sorted, so
// identical files always give identical bytes.
func Manifest(files map[string][]byte) ([]byte, error) {
	m := make(map[string]string, len(files))
	for name, data := range files {
		if name == manifestFile || name == signatureFile {
			continue
		}
		sum := sha1.Sum(data)
		m[name] = hex.EncodeToString(sum[:])
	}

	return json.Marshal(m)
}

func zipFiles(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err = w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile stores a built archive as dir/<serial>.pkpass. The file only
// appears once fully written.
func WriteFile(dir, serial string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".pkpass-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, serial+FileExtension)
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}

	return dst, nil
}
