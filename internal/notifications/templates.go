package notifications

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/inklessflow/inkless-backend/internal/documents"
)

// RenderedEmail is a fully rendered message ready for the outbox.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

var invitationHTML = template.Must(template.New("invitation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #f8fafc; padding: 24px; border-radius: 8px;">
    <h1 style="color: #1e293b; font-size: 24px;">Document Signing Request</h1>
    <p style="color: #475569; font-size: 16px;">Hello {{.SignerName}},</p>
    <p style="color: #475569; font-size: 16px;">{{.SenderName}} has invited you to sign the document "{{.DocumentTitle}}".</p>
    {{if .Message}}<div style="background-color: #f1f5f9; padding: 16px; border-radius: 4px;">
      <p style="color: #475569; font-size: 16px; margin: 0;">{{.Message}}</p>
    </div>{{end}}
    <div style="margin: 32px 0;">
      <a href="{{.SigningLink}}" style="background-color: #2563eb; color: white; padding: 12px 24px; border-radius: 4px; text-decoration: none; font-weight: bold;">Review &amp; Sign Document</a>
    </div>
    <p style="color: #475569; font-size: 14px;">If the button above doesn't work, copy and paste this link into your browser:</p>
    <p style="color: #64748b; font-size: 14px; word-break: break-all;">{{.SigningLink}}</p>
    <p style="color: #64748b; font-size: 14px;">This document is being securely processed by Inkless Flow, a free e-signature platform.</p>
  </div>
</div>`))

var reminderHTML = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #f8fafc; padding: 24px; border-radius: 8px;">
    <h1 style="color: #1e293b; font-size: 24px;">Signature Reminder</h1>
    <p style="color: #475569; font-size: 16px;">Hello {{.SignerName}},</p>
    <p style="color: #475569; font-size: 16px;">This is a friendly reminder that {{.SenderName}} is waiting for you to sign the document "{{.DocumentTitle}}".</p>
    <div style="margin: 32px 0;">
      <a href="{{.SigningLink}}" style="background-color: #2563eb; color: white; padding: 12px 24px; border-radius: 4px; text-decoration: none; font-weight: bold;">Review &amp; Sign Document</a>
    </div>
    <p style="color: #64748b; font-size: 14px; word-break: break-all;">{{.SigningLink}}</p>
    <p style="color: #64748b; font-size: 14px;">This document is being securely processed by Inkless Flow, a free e-signature platform.</p>
  </div>
</div>`))

var completionHTML = template.Must(template.New("completion").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #f8fafc; padding: 24px; border-radius: 8px;">
    <h1 style="color: #1e293b; font-size: 24px;">Document Completed</h1>
    <p style="color: #475569; font-size: 16px;">Hello {{.RecipientName}},</p>
    <p style="color: #475569; font-size: 16px;">The document "{{.DocumentTitle}}" has been signed by all parties and is now complete.</p>
    <div style="margin: 32px 0;">
      <a href="{{.DownloadLink}}" style="background-color: #2563eb; color: white; padding: 12px 24px; border-radius: 4px; text-decoration: none; font-weight: bold;">View Document</a>
    </div>
    <p style="color: #64748b; font-size: 14px; word-break: break-all;">{{.DownloadLink}}</p>
    <p style="color: #64748b; font-size: 14px;">This document is being securely processed by Inkless Flow, a free e-signature platform.</p>
  </div>
</div>`))

func renderInvitation(email documents.InvitationEmail) (RenderedEmail, error) {
	var html bytes.Buffer
	if err := invitationHTML.Execute(&html, email); err != nil {
		return RenderedEmail{}, fmt.Errorf("render invitation: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\n%s has invited you to sign the document %q.\n\n",
		email.SignerName, email.SenderName, email.DocumentTitle)
	if email.Message != "" {
		text += fmt.Sprintf("Message: %s\n\n", email.Message)
	}
	text += fmt.Sprintf("To review and sign the document, please visit:\n%s\n", email.SigningLink)

	return RenderedEmail{
		Subject: fmt.Sprintf("%s has invited you to sign %q", email.SenderName, email.DocumentTitle),
		HTML:    html.String(),
		Text:    text,
	}, nil
}

func renderReminder(email documents.ReminderEmail) (RenderedEmail, error) {
	var html bytes.Buffer
	if err := reminderHTML.Execute(&html, email); err != nil {
		return RenderedEmail{}, fmt.Errorf("render reminder: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nThis is a friendly reminder that %s is waiting for you to sign the document %q.\n\nTo review and sign the document, please visit:\n%s\n",
		email.SignerName, email.SenderName, email.DocumentTitle, email.SigningLink)

	return RenderedEmail{
		Subject: fmt.Sprintf("Reminder: Please sign %q", email.DocumentTitle),
		HTML:    html.String(),
		Text:    text,
	}, nil
}

func renderCompletion(email documents.CompletionEmail) (RenderedEmail, error) {
	var html bytes.Buffer
	if err := completionHTML.Execute(&html, email); err != nil {
		return RenderedEmail{}, fmt.Errorf("render completion: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nThe document %q has been signed by all parties and is now complete.\n\nYou can view it here:\n%s\n",
		email.RecipientName, email.DocumentTitle, email.DownloadLink)

	return RenderedEmail{
		Subject: fmt.Sprintf("Document Signed: %q", email.DocumentTitle),
		HTML:    html.String(),
		Text:    text,
	}, nil
}
