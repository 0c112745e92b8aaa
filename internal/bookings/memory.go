package bookings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// MemoryStore is an in-process Store used for local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	byID        map[uuid.UUID]*models.Booking
	byBookingID map[string]uuid.UUID
	byToken     map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:        make(map[uuid.UUID]*models.Booking),
		byBookingID: make(map[string]uuid.UUID),
		byToken:     make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, b *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[b.ID]; ok {
		return ErrDuplicateIdentifier
	}
	if _, ok := s.byBookingID[b.BookingID]; ok {
		return ErrDuplicateIdentifier
	}
	if _, ok := s.byToken[b.MagicLinkID]; ok {
		return ErrDuplicateIdentifier
	}
	s.byID[b.ID] = b.Clone()
	s.byBookingID[b.BookingID] = b.ID
	s.byToken[b.MagicLinkID] = b.ID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.lookup(id)
	if b == nil {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) GetByMagicLink(ctx context.Context, token string) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, mutate func(b *models.Booking) error) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(id)
	if cur == nil {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		if errors.Is(err, errUnchanged) {
			return cur.Clone(), nil
		}
		return nil, err
	}
	s.byID[cur.ID] = next
	return next.Clone(), nil
}

func (s *MemoryStore) RecordAccess(ctx context.Context, token string, at time.Time) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	b := s.byID[id]
	b.AccessCount++
	if b.LastAccessedAt == nil || at.After(*b.LastAccessedAt) {
		t := at
		b.LastAccessedAt = &t
	}
	return b.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	f = f.normalized()
	s.mu.RLock()
	out := make([]models.Booking, 0, len(s.byID))
	for _, b := range s.byID {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && b.PaymentStatus != f.PaymentStatus {
			continue
		}
		out = append(out, *b.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return []models.Booking{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// lookup resolves an internal uuid or booking id. Caller holds mu.
func (s *MemoryStore) lookup(id string) *models.Booking {
	if u, err := uuid.Parse(id); err == nil {
		if b, ok := s.byID[u]; ok {
			return b
		}
	}
	if u, ok := s.byBookingID[id]; ok {
		return s.byID[u]
	}
	return nil
}
