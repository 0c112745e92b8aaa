package bookings

import (
	"context"
	"time"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// Store persists bookings. Implementations must serialize Update and
// RecordAccess per booking so status, payment and timestamps never tear.
type Store interface {
	// Insert stores a new booking; ErrDuplicateIdentifier on id/token collision.
	Insert(ctx context.Context, b *models.Booking) error
	// Get looks up by internal uuid or human-readable booking id.
	Get(ctx context.Context, id string) (*models.Booking, error)
	// GetByMagicLink looks up by magic-link token.
	GetByMagicLink(ctx context.Context, token string) (*models.Booking, error)
	// Update runs mutate on a copy of the locked record and writes it back
	// only if mutate returns nil.
	Update(ctx context.Context, id string, mutate func(b *models.Booking) error) (*models.Booking, error)
	// RecordAccess atomically increments accessCount and advances lastAccessedAt.
	RecordAccess(ctx context.Context, token string, at time.Time) (*models.Booking, error)
	// List returns bookings newest first.
	List(ctx context.Context, f ListFilter) ([]models.Booking, error)
}

// ListFilter narrows List.
type ListFilter struct {
	Status        models.BookingStatus
	PaymentStatus models.PaymentStatus
	Limit         int
	Offset        int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
