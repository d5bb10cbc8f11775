package documents

import (
	"context"

	"github.com/google/uuid"
)

// InvitationEmail carries everything needed to render a signing invitation.
type InvitationEmail struct {
	DocumentID    uuid.UUID
	DocumentTitle string
	SignerName    string
	SignerEmail   string
	SenderName    string
	Message       string
	SigningLink   string
}

// ReminderEmail has the same shape as an invitation but different copy.
type ReminderEmail struct {
	DocumentID    uuid.UUID
	DocumentTitle string
	SignerName    string
	SignerEmail   string
	SenderName    string
	SigningLink   string
}

// CompletionEmail notifies a participant that every signer has signed.
type CompletionEmail struct {
	DocumentID    uuid.UUID
	DocumentTitle string
	RecipientName string
	RecipientEmail string
	DownloadLink  string
}

// NotificationResult is inspected rather than returned as an error: a
// failed send never fails the state transition that triggered it.
type NotificationResult struct {
	Success bool
	Err     error
}

// Notifier is the outbound mail boundary the workflow engine drives.
type Notifier interface {
	SendInvitation(ctx context.Context, email InvitationEmail) NotificationResult
	SendReminder(ctx context.Context, email ReminderEmail) NotificationResult
	SendCompletion(ctx context.Context, email CompletionEmail) NotificationResult
}
