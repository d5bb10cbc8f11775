package notifications

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dispatcher drains the outbox. Entries that fail keep their pending
// status until the attempt budget runs out, then flip to failed.
type Dispatcher struct {
	db          *gorm.DB
	channel     EmailChannel
	from        string
	logger      *zap.Logger
	maxAttempts int
	batchSize   int
}

func NewDispatcher(db *gorm.DB, channel EmailChannel, from string, maxAttempts int, logger *zap.Logger) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		db:          db,
		channel:     channel,
		from:        from,
		logger:      logger.With(zap.String("component", "outbox_dispatcher")),
		maxAttempts: maxAttempts,
		batchSize:   50,
	}
}

// Schedule registers the dispatcher on a cron schedule.
func (d *Dispatcher) Schedule(c *cron.Cron, spec string) error {
	_, err := c.AddFunc(spec, func() {
		if err := d.Run(context.Background()); err != nil {
			d.logger.Error("outbox run failed", zap.Error(err))
		}
	})
	return err
}

// Run delivers one batch of pending entries.
func (d *Dispatcher) Run(ctx context.Context) error {
	var entries []OutboxEntry
	err := d.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", StatusPending, d.maxAttempts).
		Order("created_at ASC").
		Limit(d.batchSize).
		Find(&entries).Error
	if err != nil {
		return err
	}

	for i := range entries {
		d.deliver(ctx, &entries[i])
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, entry *OutboxEntry) {
	entry.Attempts++

	err := d.channel.Send(ctx, Email{
		To:      entry.Recipient,
		ToName:  entry.RecipientName,
		From:    d.from,
		Subject: entry.Subject,
		HTML:    entry.BodyHTML,
		Text:    entry.BodyText,
	})
	if err != nil {
		msg := err.Error()
		entry.LastError = &msg
		if entry.Attempts >= d.maxAttempts {
			entry.Status = StatusFailed
			d.logger.Error("notification delivery exhausted",
				zap.String("id", entry.ID.String()),
				zap.String("recipient", entry.Recipient),
				zap.Error(err))
		} else {
			d.logger.Warn("notification delivery failed, will retry",
				zap.String("id", entry.ID.String()),
				zap.Int("attempts", entry.Attempts),
				zap.Error(err))
		}
	} else {
		now := time.Now()
		entry.Status = StatusSent
		entry.SentAt = &now
		entry.LastError = nil
	}

	if err := d.db.WithContext(ctx).Save(entry).Error; err != nil {
		d.logger.Error("failed to persist outbox entry state",
			zap.String("id", entry.ID.String()),
			zap.Error(err))
	}
}
