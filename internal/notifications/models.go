package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EmailKind string

const (
	KindInvitation EmailKind = "invitation"
	KindReminder   EmailKind = "reminder"
	KindCompletion EmailKind = "completion"
)

type OutboxStatus string

const (
	StatusPending OutboxStatus = "pending"
	StatusSent    OutboxStatus = "sent"
	StatusFailed  OutboxStatus = "failed"
)

// OutboxEntry is one email owed to a recipient. Workflow state advances
// the moment the entry is written; delivery happens later and may be
// retried without re-running the workflow.
type OutboxEntry struct {
	ID            uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	Kind          EmailKind      `json:"kind" gorm:"not null;index"`
	DocumentID    string         `json:"document_id" gorm:"index"`
	Recipient     string         `json:"recipient" gorm:"not null"`
	RecipientName string         `json:"recipient_name"`
	Subject       string         `json:"subject" gorm:"not null"`
	BodyHTML      string         `json:"-" gorm:"type:text"`
	BodyText      string         `json:"-" gorm:"type:text"`
	Payload       datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	Status        OutboxStatus   `json:"status" gorm:"not null;index;default:pending"`
	Attempts      int            `json:"attempts" gorm:"default:0"`
	LastError     *string        `json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
}

func (OutboxEntry) TableName() string {
	return "notification_outbox"
}
