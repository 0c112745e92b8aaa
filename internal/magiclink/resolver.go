// Package magiclink turns magic-link tokens into booking redirects.
package magiclink

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/analytics"
	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// SourceMagicLink tags redirects so the frontend can tell how the visitor arrived.
const SourceMagicLink = "magic_link"

// Bookings is the slice of the booking service the resolver needs.
type Bookings interface {
	GetByMagicLink(ctx context.Context, token string) (*models.Booking, error)
	RecordAccess(ctx context.Context, token string) (*models.Booking, error)
}

// AccessRecorder stores the access event; failures must not reach the visitor.
type AccessRecorder interface {
	RecordBestEffort(ctx context.Context, magicLinkID string, e analytics.Event)
}

// RedirectTarget is where a resolved magic link sends the visitor.
type RedirectTarget struct {
	URL       string          `json:"redirectUrl"`
	BookingID string          `json:"bookingId"`
	Booking   *models.Booking `json:"-"`
}

// Preview is the side-effect-free view of a magic link.
type Preview struct {
	BookingID      string               `json:"bookingId"`
	RedirectURL    string               `json:"redirectUrl"`
	Status         models.BookingStatus `json:"status"`
	BookingDetails *models.Booking      `json:"bookingDetails"`
}

// Visit carries request context recorded with an access.
type Visit struct {
	UserAgent     string
	SourceAddress string
	Referer       string
}

// Resolver maps tokens to bookings.
type Resolver struct {
	bookings     Bookings
	recorder     AccessRecorder
	frontendBase string
	logger       *zap.Logger
}

// NewResolver creates a resolver. recorder may be nil.
func NewResolver(b Bookings, recorder AccessRecorder, frontendBase string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		bookings:     b,
		recorder:     recorder,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		logger:       logger,
	}
}

// Resolve counts the access, records a link_click event and returns the
// redirect target. Unknown tokens fail with bookings.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, token string, v Visit) (*RedirectTarget, error) {
	b, err := r.bookings.RecordAccess(ctx, token)
	if err != nil {
		return nil, err
	}
	if r.recorder != nil {
		meta := map[string]any{"accessCount": b.AccessCount}
		if v.Referer != "" {
			meta["referer"] = v.Referer
		}
		r.recorder.RecordBestEffort(ctx, token, analytics.Event{
			Kind:          models.EventLinkClick,
			UserAgent:     v.UserAgent,
			SourceAddress: v.SourceAddress,
			Metadata:      meta,
		})
	}
	r.logger.Debug("magic link resolved", zap.String("booking_id", b.BookingID), zap.Int64("access_count", b.AccessCount))
	return &RedirectTarget{URL: RedirectURL(r.frontendBase, b), BookingID: b.BookingID, Booking: b}, nil
}

// Preview looks up the booking without touching access counters.
func (r *Resolver) Preview(ctx context.Context, token string) (*Preview, error) {
	b, err := r.bookings.GetByMagicLink(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Preview{
		BookingID:      b.BookingID,
		RedirectURL:    RedirectURL(r.frontendBase, b),
		Status:         b.Status,
		BookingDetails: b,
	}, nil
}

// RedirectURL formats {frontendBase}/booking/{bookingId}?status=..&payment_status=..&source=magic_link.
func RedirectURL(frontendBase string, b *models.Booking) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(frontendBase, "/"))
	sb.WriteString("/booking/")
	sb.WriteString(url.PathEscape(b.BookingID))
	sb.WriteString("?status=")
	sb.WriteString(url.QueryEscape(string(b.Status)))
	sb.WriteString("&payment_status=")
	sb.WriteString(url.QueryEscape(string(b.PaymentStatus)))
	sb.WriteString("&source=")
	sb.WriteString(SourceMagicLink)
	return sb.String()
}
