// Package email delivers finished briefs to clients via Resend.
package email

import (
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/resend/resend-go/v2"

	"whitecoat/internal/config"
	"whitecoat/internal/logger"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Sender sends brief delivery emails with the PDF attached
type Sender struct {
	client      *resend.Client
	fromAddress string
	fromName    string
}

// NewSender creates a Resend-backed email sender
func NewSender(cfg config.Email) (*Sender, error) {
	if cfg.ResendAPIKey == "" {
		return nil, fmt.Errorf("resend API key is not set")
	}
	return &Sender{
		client:      resend.NewClient(cfg.ResendAPIKey),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}, nil
}

// BriefEmail carries everything needed to deliver one brief
type BriefEmail struct {
	To          string
	FounderName string
	BrandName   string
	PDFContent  []byte
}

// SendBrief emails the finished brief PDF to the client
func (s *Sender) SendBrief(ctx context.Context, msg BriefEmail) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email is empty")
	}
	if len(msg.PDFContent) == 0 {
		return fmt.Errorf("PDF content is empty")
	}

	firstName := msg.FounderName
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}

	var body strings.Builder
	err := briefEmailTemplate.Execute(&body, struct {
		FirstName string
		BrandName string
	}{FirstName: firstName, BrandName: msg.BrandName})
	if err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	filename := fmt.Sprintf("WhiteCoat-Brief-%s.pdf", whitespaceRegex.ReplaceAllString(msg.BrandName, "-"))

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress),
		To:      []string{msg.To},
		Subject: fmt.Sprintf("Your WhiteCoat Brief for %s is Ready", msg.BrandName),
		Html:    body.String(),
		Attachments: []*resend.Attachment{
			{
				Filename: filename,
				Content:  msg.PDFContent,
			},
		},
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Get().Info("Brief email sent", "to", msg.To, "brand", msg.BrandName, "email_id", sent.Id)
	return nil
}

var briefEmailTemplate = template.Must(template.New("brief-email").Parse(`
<div style="font-family: 'Inter', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 40px 20px;">
  <div style="margin-bottom: 30px;">
    <span style="font-family: 'JetBrains Mono', monospace; color: #059669; font-size: 12px; font-weight: bold; letter-spacing: 2px;">WHITECOAT BRIEF&trade;</span>
  </div>

  <h1 style="font-size: 24px; color: #0F172A; margin-bottom: 20px;">
    Hi {{.FirstName}},
  </h1>

  <p style="font-size: 16px; color: #475569; line-height: 1.6; margin-bottom: 20px;">
    Your WhiteCoat Brief for <strong>{{.BrandName}}</strong> is attached!
  </p>

  <p style="font-size: 16px; color: #475569; line-height: 1.6; margin-bottom: 20px;">
    This document contains your personalized marketing playbook, including:
  </p>

  <ul style="font-size: 16px; color: #475569; line-height: 1.8; margin-bottom: 30px; padding-left: 20px;">
    <li>Competitive landscape analysis</li>
    <li>Strategic positioning recommendations</li>
    <li>Creative concepts and ad hooks</li>
    <li>A 4-week testing roadmap</li>
  </ul>

  <p style="font-size: 16px; color: #475569; line-height: 1.6; margin-bottom: 30px;">
    Questions? Just reply to this email &mdash; we'd love to hear from you.
  </p>

  <p style="font-size: 16px; color: #0F172A; line-height: 1.6;">
    Best,<br>
    <strong>The WhiteCoat Brief Team</strong>
  </p>

  <hr style="border: none; border-top: 1px solid #E2E8F0; margin: 40px 0;" />

  <p style="font-size: 12px; color: #94A3B8;">
    &copy; 2026 WhiteCoat Brief&trade; | Marketing Intelligence for Physician-Founded Brands
  </p>
</div>
`))
