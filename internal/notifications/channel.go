package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/inklessflow/inkless-backend/internal/config"
)

// Email is one message handed to a delivery channel.
type Email struct {
	To      string
	ToName  string
	From    string
	Subject string
	HTML    string
	Text    string
}

// EmailChannel delivers a single email. Implementations: SES for
// production, plain SMTP for development.
type EmailChannel interface {
	Send(ctx context.Context, email Email) error
}

// NewEmailChannel builds the channel selected by config.
func NewEmailChannel(ctx context.Context, cfg config.EmailConfig) (EmailChannel, error) {
	switch cfg.Mode {
	case "production":
		return NewSESChannel(ctx, cfg.SES)
	case "development", "":
		return NewSMTPChannel(cfg.SMTP), nil
	default:
		return nil, fmt.Errorf("unknown email mode %q", cfg.Mode)
	}
}

type sesChannel struct {
	client *sesv2.Client
}

func NewSESChannel(ctx context.Context, cfg config.SESConfig) (EmailChannel, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &sesChannel{client: sesv2.NewFromConfig(awsCfg)}, nil
}

func (c *sesChannel) Send(ctx context.Context, email Email) error {
	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination: &sestypes.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(email.Subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(email.HTML)},
					Text: &sestypes.Content{Data: aws.String(email.Text)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

type smtpChannel struct {
	cfg config.SMTPConfig
}

func NewSMTPChannel(cfg config.SMTPConfig) EmailChannel {
	return &smtpChannel{cfg: cfg}
}

func (c *smtpChannel) Send(ctx context.Context, email Email) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	msg := buildMIMEMessage(email)
	if err := smtp.SendMail(addr, auth, fromAddress(email.From), []string{email.To}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMIMEMessage produces a multipart/alternative body carrying both
// the text and HTML renderings.
func buildMIMEMessage(email Email) []byte {
	const boundary = "inkless-alt"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", email.From)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, email.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, email.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

// fromAddress extracts the bare address from "Name <addr>" senders.
func fromAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start != -1 {
		if end := strings.LastIndex(from, ">"); end > start {
			return from[start+1 : end]
		}
	}
	return from
}
