package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/internal/notifications"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
)

// JobQueue is the part of the Redis queue the worker loop needs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, key string, job *queue.Job) error
}

// NotificationLog persists delivery attempts.
type NotificationLog interface {
	Insert(ctx context.Context, l *models.NotificationLog) error
}

// Sender delivers a rendered message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// ExportSource reads the analytics that go into an export.
type ExportSource interface {
	ListEvents(ctx context.Context, magicLinkID string) ([]models.AnalyticsEvent, error)
	Summarize(ctx context.Context, magicLinkID string) (*models.AnalyticsSummary, error)
}

// ExportSink stores a finished export document.
type ExportSink interface {
	UploadExport(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// Export is the JSON document written for an analytics export job.
type Export struct {
	BookingID   string                   `json:"bookingId"`
	MagicLinkID string                   `json:"magicLinkId"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Summary     *models.AnalyticsSummary `json:"summary"`
	Events      []models.AnalyticsEvent  `json:"events"`
}

// Processor executes notification and export jobs.
type Processor struct {
	queue   JobQueue
	logs    NotificationLog
	sender  Sender
	source  ExportSource
	exports ExportSink
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewProcessor creates a job processor. exports may be nil when S3 is not configured;
// export jobs then fail and end up in the dead-letter queue.
func NewProcessor(q JobQueue, logs NotificationLog, sender Sender, source ExportSource, exports ExportSink, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		queue:   q,
		logs:    logs,
		sender:  sender,
		source:  source,
		exports: exports,
		logger:  logger,
		backoff: queue.RetryBackoff,
		now:     time.Now,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeBookingNotification:
		var payload queue.NotificationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.notify(ctx, payload)
	case queue.JobTypeAnalyticsExport:
		var payload queue.ExportPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.export(ctx, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) notify(ctx context.Context, payload queue.NotificationPayload) error {
	now := p.now()
	entry := &models.NotificationLog{
		ID:        uuid.New(),
		BookingID: payload.BookingID,
		Event:     payload.Event,
		Channel:   models.NotificationChannelSMS,
		Recipient: payload.UserPhone,
		Message:   notifications.Compose(payload),
		CreatedAt: now,
	}
	sendErr := p.sender.Send(ctx, entry.Recipient, entry.Message)
	if sendErr != nil {
		entry.Status = models.NotificationStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		entry.Status = models.NotificationStatusSent
		entry.SentAt = &now
	}
	if err := p.logs.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	if sendErr != nil {
		return fmt.Errorf("send notification: %w", sendErr)
	}
	p.logger.Info("notification sent", zap.String("booking_id", payload.BookingID), zap.String("event", payload.Event))
	return nil
}

func (p *Processor) export(ctx context.Context, payload queue.ExportPayload) error {
	if p.exports == nil {
		return fmt.Errorf("export storage not configured")
	}
	events, err := p.source.ListEvents(ctx, payload.MagicLinkID)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	summary, err := p.source.Summarize(ctx, payload.MagicLinkID)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	body, err := json.Marshal(Export{
		BookingID:   payload.BookingID,
		MagicLinkID: payload.MagicLinkID,
		GeneratedAt: p.now().UTC(),
		Summary:     summary,
		Events:      events,
	})
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := p.exports.UploadExport(ctx, payload.Key, bytes.NewReader(body), int64(len(body))); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	p.logger.Info("analytics export uploaded", zap.String("booking_id", payload.BookingID), zap.String("key", payload.Key), zap.Int("events", len(events)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, key, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
