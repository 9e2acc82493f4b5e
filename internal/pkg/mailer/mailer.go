// Package mailer sends transactional email through Resend.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
)

var ErrNotConfigured = errors.New("mailer: api key not configured")

type Config struct {
	APIKey string
	From   string
	// BaseURL overrides the Resend API endpoint.
	BaseURL string
}

// PassIssued is the data rendered into the pass delivery email.
type PassIssued struct {
	To             string
	DinerName      string
	BrandName      string
	DownloadURL    string
	ExpiresAt      time.Time
	PrimaryColor   string
	TextColor      string
	CustomMessage  string
	PromotionTitle string
}

type Mailer struct {
	client *resend.Client
	from   string
}

func New(conf Config) (*Mailer, error) {
	if conf.APIKey == "" {
		return nil, ErrNotConfigured
	}

	client := resend.NewClient(conf.APIKey)
	if conf.BaseURL != "" {
		u, err := url.Parse(conf.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("url.Parse -> %w", err)
		}
		client.BaseURL = u
	}

	return &Mailer{
		client: client,
		from:   conf.From,
	}, nil
}

// SendPassIssued returns the provider message id.
func (m *Mailer) SendPassIssued(ctx context.Context, msg PassIssued) (string, error) {
	if msg.To == "" {
		return "", errors.New("mailer: missing recipient")
	}

	html, err := renderPassIssued(msg)
	if err != nil {
		return "", fmt.Errorf("renderPassIssued -> %w", err)
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: fmt.Sprintf("Your %s loyalty pass", msg.BrandName),
		Html:    html,
	})
	if err != nil {
		return "", fmt.Errorf("m.client.Emails.SendWithContext -> %w", err)
	}

	return sent.Id, nil
}

var passIssuedTmpl = template.Must(template.New("pass_issued").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f5f5f5; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: {{.PrimaryColor}}; color: {{.TextColor}}; border-radius: 12px; padding: 24px;">
    <h1 style="margin-top: 0;">{{.BrandName}}</h1>
    <p>Hi {{.DinerName}},</p>
    <p>Your digital loyalty pass is ready.</p>
    {{if .CustomMessage}}<p>{{.CustomMessage}}</p>{{end}}
    {{if .PromotionTitle}}<p><strong>Current promotion:</strong> {{.PromotionTitle}}</p>{{end}}
    <p><a href="{{.DownloadURL}}" style="display: inline-block; padding: 12px 20px; background: {{.TextColor}}; color: {{.PrimaryColor}}; border-radius: 6px; text-decoration: none;">Add to Apple Wallet</a></p>
    <p style="font-size: 12px;">Valid until {{.ExpiresAt.Format "January 2, 2006"}}.</p>
  </div>
</body>
</html>`))

func renderPassIssued(msg PassIssued) (string, error) {
	if msg.PrimaryColor == "" {
		msg.PrimaryColor = "#000000"
	}
	if msg.TextColor == "" {
		msg.TextColor = "#FFFFFF"
	}

	var buf bytes.Buffer
	if err := passIssuedTmpl.Execute(&buf, msg); err != nil {
		return "", err
	}

	return buf.String(), nil
}
