package documents

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusPending   DocumentStatus = "PENDING"
	StatusCompleted DocumentStatus = "COMPLETED"
	StatusCancelled DocumentStatus = "CANCELLED"
)

type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldText      FieldType = "TEXT"
	FieldDate      FieldType = "DATE"
	FieldCheckbox  FieldType = "CHECKBOX"
	FieldInitial   FieldType = "INITIAL"
)

type SignerStatus string

const (
	SignerPending  SignerStatus = "PENDING"
	SignerViewed   SignerStatus = "VIEWED"
	SignerSigned   SignerStatus = "SIGNED"
	SignerDeclined SignerStatus = "DECLINED"
)

type ActivityAction string

const (
	ActionSignerAdded        ActivityAction = "SIGNER_ADDED"
	ActionSignerRemoved      ActivityAction = "SIGNER_REMOVED"
	ActionReminderSent       ActivityAction = "REMINDER_SENT"
	ActionShareLinkGenerated ActivityAction = "SHARE_LINK_GENERATED"
	ActionInvitationSent     ActivityAction = "INVITATION_SENT"
	ActionDocumentSigned     ActivityAction = "DOCUMENT_SIGNED"
	ActionWorkflowStarted    ActivityAction = "WORKFLOW_STARTED"
	ActionDocumentCompleted  ActivityAction = "DOCUMENT_COMPLETED"
	ActionDocumentCancelled  ActivityAction = "DOCUMENT_CANCELLED"
)

type Document struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	OwnerID     uuid.UUID      `json:"owner_id" db:"owner_id"`
	Title       string         `json:"title" db:"title"`
	Description *string        `json:"description,omitempty" db:"description"`
	FileURL     string         `json:"file_url" db:"file_url"`
	FileKey     string         `json:"file_key" db:"file_key"`
	Status      DocumentStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`

	Fields  []Field  `json:"fields,omitempty" db:"-"`
	Signers []Signer `json:"signers,omitempty" db:"-"`
}

// Field geometry is stored as fractions of the page dimensions so the
// frontend can render at any zoom level.
type Field struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	DocumentID uuid.UUID  `json:"document_id" db:"document_id"`
	Type       FieldType  `json:"type" db:"type"`
	Page       int        `json:"page" db:"page"`
	X          float64    `json:"x" db:"x"`
	Y          float64    `json:"y" db:"y"`
	Width      float64    `json:"width" db:"width"`
	Height     float64    `json:"height" db:"height"`
	Value      *string    `json:"value,omitempty" db:"value"`
	Required   bool       `json:"required" db:"required"`
	SignerID   *uuid.UUID `json:"signer_id,omitempty" db:"signer_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

type Signer struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	DocumentID uuid.UUID    `json:"document_id" db:"document_id"`
	Name       string       `json:"name" db:"name"`
	Email      string       `json:"email" db:"email"`
	Status     SignerStatus `json:"status" db:"status"`
	Order      *int         `json:"order,omitempty" db:"signing_order"`
	SignedAt   *time.Time   `json:"signed_at,omitempty" db:"signed_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// Ordering is the explicit form of a signer's place in the workflow:
// either unordered (the signer participates in the parallel pool) or a
// positive tier number. Legacy rows with no order compare as tier 1.
type Ordering struct {
	tiered bool
	n      int
}

func Unordered() Ordering { return Ordering{} }
func Tier(n int) Ordering { return Ordering{tiered: true, n: n} }

func (o Ordering) Ordered() bool { return o.tiered }

// Effective returns the tier used for grouping. An unordered signer in a
// document that contains ordered signers falls back to tier 1, matching
// the historical null-means-first behavior.
func (o Ordering) Effective() int {
	if !o.tiered {
		return 1
	}
	return o.n
}

// OrderingOf converts the nullable stored column into an Ordering value.
func OrderingOf(s Signer) Ordering {
	if s.Order == nil {
		return Unordered()
	}
	return Tier(*s.Order)
}

type ShareLink struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	DocumentID uuid.UUID  `json:"document_id" db:"document_id"`
	SignerID   *uuid.UUID `json:"signer_id,omitempty" db:"signer_id"`
	Token      string     `json:"token" db:"token"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the link is past its expiry. Enforced where
// tokens are accepted; the workflow engine never checks it.
func (l *ShareLink) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Activity is an append-only audit row. ActorID is nil when the action
// originated from an external signer without an account.
type Activity struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	DocumentID uuid.UUID      `json:"document_id" db:"document_id"`
	Action     ActivityAction `json:"action" db:"action"`
	Details    string         `json:"details" db:"details"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty" db:"actor_id"`
	IPAddress  string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Owner is the document owner's identity as needed for outgoing email.
type Owner struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
}
