package analytics

import (
	"context"
	"sort"
	"sync"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// Store appends and lists magic-link events. Events are never updated or deleted.
type Store interface {
	Append(ctx context.Context, ev *models.AnalyticsEvent) error
	ListByMagicLink(ctx context.Context, magicLinkID string) ([]models.AnalyticsEvent, error)
}

// MemoryStore keeps events in process.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]models.AnalyticsEvent
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]models.AnalyticsEvent)}
}

func (s *MemoryStore) Append(ctx context.Context, ev *models.AnalyticsEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.MagicLinkID] = append(s.events[ev.MagicLinkID], *ev)
	return nil
}

func (s *MemoryStore) ListByMagicLink(ctx context.Context, magicLinkID string) ([]models.AnalyticsEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := append([]models.AnalyticsEvent{}, s.events[magicLinkID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
