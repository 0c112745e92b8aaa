package notifications

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
)

// Enqueuer is the part of the job queue the dispatcher needs.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// Dispatcher turns committed booking changes into notification jobs.
type Dispatcher struct {
	queue     Enqueuer
	magicLink func(token string) string
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. magicLink builds the public link sent with the creation notice.
func NewDispatcher(q Enqueuer, magicLink func(token string) string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: q, magicLink: magicLink, logger: logger}
}

// BookingChanged implements bookings.EventSink. Detail edits are not announced.
func (d *Dispatcher) BookingChanged(ctx context.Context, event string, b *models.Booking) {
	if event == bookings.EventDetailsUpdated {
		return
	}
	p := queue.NotificationPayload{
		Event:     event,
		BookingID: b.BookingID,
		UserName:  b.UserName,
		UserPhone: b.UserPhone,
		Status:    string(b.Status),
	}
	if event == bookings.EventCreated && d.magicLink != nil {
		p.MagicLink = d.magicLink(b.MagicLinkID)
	}
	if event == bookings.EventPaymentUpdated {
		p.Status = string(b.PaymentStatus)
	}
	if err := d.queue.EnqueueNotification(ctx, p); err != nil {
		d.logger.Warn("enqueue notification failed", zap.String("booking_id", b.BookingID), zap.String("event", event), zap.Error(err))
	}
}

// Compose renders the SMS body for a notification job.
func Compose(p queue.NotificationPayload) string {
	name := strings.TrimSpace(p.UserName)
	if name == "" {
		name = "there"
	}
	switch p.Event {
	case bookings.EventCreated:
		msg := fmt.Sprintf("Hi %s, we received your booking %s.", name, p.BookingID)
		if p.MagicLink != "" {
			msg += " Track it here: " + p.MagicLink
		}
		return msg
	case bookings.EventConfirmed:
		return fmt.Sprintf("Hi %s, your booking %s is confirmed.", name, p.BookingID)
	case bookings.EventCancelled:
		return fmt.Sprintf("Hi %s, your booking %s has been cancelled.", name, p.BookingID)
	case bookings.EventCompleted:
		return fmt.Sprintf("Hi %s, thanks for attending. Booking %s is complete.", name, p.BookingID)
	case bookings.EventPaymentUpdated:
		return fmt.Sprintf("Hi %s, payment for booking %s is now %s.", name, p.BookingID, p.Status)
	default:
		return fmt.Sprintf("Hi %s, booking %s was updated.", name, p.BookingID)
	}
}
