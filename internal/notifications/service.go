package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inklessflow/inkless-backend/internal/documents"
)

// Service implements the workflow engine's notification boundary by
// writing rendered emails to the outbox. The enqueue is the only thing
// that can fail a send result; actual delivery is the dispatcher's job.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&OutboxEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notification outbox: %w", err)
	}
	return &Service{
		db:     db,
		logger: logger.With(zap.String("service", "notifications")),
		now:    time.Now,
	}, nil
}

func (s *Service) SendInvitation(ctx context.Context, email documents.InvitationEmail) documents.NotificationResult {
	rendered, err := renderInvitation(email)
	if err != nil {
		return documents.NotificationResult{Err: err}
	}
	return s.enqueue(ctx, KindInvitation, email.DocumentID, email.SignerEmail, email.SignerName, rendered, email)
}

func (s *Service) SendReminder(ctx context.Context, email documents.ReminderEmail) documents.NotificationResult {
	rendered, err := renderReminder(email)
	if err != nil {
		return documents.NotificationResult{Err: err}
	}
	return s.enqueue(ctx, KindReminder, email.DocumentID, email.SignerEmail, email.SignerName, rendered, email)
}

func (s *Service) SendCompletion(ctx context.Context, email documents.CompletionEmail) documents.NotificationResult {
	rendered, err := renderCompletion(email)
	if err != nil {
		return documents.NotificationResult{Err: err}
	}
	return s.enqueue(ctx, KindCompletion, email.DocumentID, email.RecipientEmail, email.RecipientName, rendered, email)
}

func (s *Service) enqueue(ctx context.Context, kind EmailKind, documentID uuid.UUID, recipient, recipientName string, rendered RenderedEmail, payload interface{}) documents.NotificationResult {
	raw, err := json.Marshal(payload)
	if err != nil {
		return documents.NotificationResult{Err: err}
	}

	entry := &OutboxEntry{
		ID:            uuid.New(),
		Kind:          kind,
		DocumentID:    documentID.String(),
		Recipient:     recipient,
		RecipientName: recipientName,
		Subject:       rendered.Subject,
		BodyHTML:      rendered.HTML,
		BodyText:      rendered.Text,
		Payload:       raw,
		Status:        StatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("failed to enqueue notification",
			zap.String("kind", string(kind)),
			zap.String("recipient", recipient),
			zap.Error(err))
		return documents.NotificationResult{Err: err}
	}
	return documents.NotificationResult{Success: true}
}
