// Package analytics records and summarizes magic-link interactions.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
)

const maxMetadataKeys = 32

// BookingLookup resolves a magic link to its booking.
type BookingLookup interface {
	GetByMagicLink(ctx context.Context, token string) (*models.Booking, error)
}

// Event is a tracked interaction as supplied by the request layer.
type Event struct {
	Kind          models.EventKind
	UserAgent     string
	SourceAddress string
	Metadata      map[string]any
}

// Recorder appends events for known magic links and derives summaries.
type Recorder struct {
	store    Store
	bookings BookingLookup
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRecorder creates a recorder. timeout bounds each store call.
func NewRecorder(store Store, lookup BookingLookup, timeout time.Duration, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{store: store, bookings: lookup, timeout: timeout, now: time.Now, logger: logger}
}

// Record appends an event. Unknown magic links fail with bookings.ErrNotFound.
func (r *Recorder) Record(ctx context.Context, magicLinkID string, e Event) (*models.AnalyticsEvent, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown event kind %q", bookings.ErrValidation, e.Kind)
	}
	if len(e.Metadata) > maxMetadataKeys {
		return nil, fmt.Errorf("%w: metadata has more than %d keys", bookings.ErrValidation, maxMetadataKeys)
	}
	b, err := r.bookings.GetByMagicLink(ctx, magicLinkID)
	if err != nil {
		return nil, err
	}
	ev := &models.AnalyticsEvent{
		ID:            uuid.New(),
		MagicLinkID:   magicLinkID,
		BookingID:     b.BookingID,
		Kind:          e.Kind,
		Timestamp:     r.now().UTC(),
		UserAgent:     e.UserAgent,
		SourceAddress: e.SourceAddress,
		Metadata:      e.Metadata,
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.store.Append(ctx, ev); err != nil {
		return nil, storeErr(err)
	}
	return ev, nil
}

// RecordBestEffort records an event and only logs failures.
func (r *Recorder) RecordBestEffort(ctx context.Context, magicLinkID string, e Event) {
	if _, err := r.Record(ctx, magicLinkID, e); err != nil {
		r.logger.Warn("analytics record failed",
			zap.String("magic_link_id", magicLinkID),
			zap.String("event_kind", string(e.Kind)),
			zap.Error(err))
	}
}

// ListEvents returns events oldest first; an empty slice when none exist.
func (r *Recorder) ListEvents(ctx context.Context, magicLinkID string) ([]models.AnalyticsEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	list, err := r.store.ListByMagicLink(ctx, magicLinkID)
	if err != nil {
		return nil, storeErr(err)
	}
	if list == nil {
		list = []models.AnalyticsEvent{}
	}
	return list, nil
}

// Summarize derives counts and first/last access times. It never writes.
func (r *Recorder) Summarize(ctx context.Context, magicLinkID string) (*models.AnalyticsSummary, error) {
	b, err := r.bookings.GetByMagicLink(ctx, magicLinkID)
	if err != nil {
		return nil, err
	}
	events, err := r.ListEvents(ctx, magicLinkID)
	if err != nil {
		return nil, err
	}
	return summarize(b, events), nil
}

func summarize(b *models.Booking, events []models.AnalyticsEvent) *models.AnalyticsSummary {
	s := &models.AnalyticsSummary{
		MagicLinkID: b.MagicLinkID,
		BookingID:   b.BookingID,
		AccessCount: b.AccessCount,
		EventCounts: make(map[models.EventKind]int),
		TotalEvents: len(events),
	}
	for i := range events {
		ev := events[i]
		s.EventCounts[ev.Kind]++
		if s.FirstAccess == nil || ev.Timestamp.Before(*s.FirstAccess) {
			t := ev.Timestamp
			s.FirstAccess = &t
		}
		if s.LastAccess == nil || ev.Timestamp.After(*s.LastAccess) {
			t := ev.Timestamp
			s.LastAccess = &t
		}
	}
	if b.LastAccessedAt != nil && (s.LastAccess == nil || b.LastAccessedAt.After(*s.LastAccess)) {
		t := *b.LastAccessedAt
		s.LastAccess = &t
	}
	// The link_click row is best effort, so the booking's own timestamp
	// stands in when no event was persisted.
	if s.FirstAccess == nil && b.LastAccessedAt != nil {
		t := *b.LastAccessedAt
		s.FirstAccess = &t
	}
	return s
}

func storeErr(err error) error {
	err = bookings.ClassifyStoreError(err)
	if errors.Is(err, bookings.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("analytics store: %w", err)
}
