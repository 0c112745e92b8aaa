package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
)

type fakeQueue struct {
	jobs []queue.NotificationPayload
	err  error
}

func (f *fakeQueue) EnqueueNotification(_ context.Context, p queue.NotificationPayload) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, p)
	return nil
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		BookingID:     "BK-LX2-ABC123",
		MagicLinkID:   "V1StGXR8_Z5jdHi6B-myT",
		UserName:      "Jane Doe",
		UserPhone:     "+15550100",
		Status:        models.StatusPendingConfirmation,
		PaymentStatus: models.PaymentPending,
	}
}

func TestDispatcher_EnqueuesCreateWithLink(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, func(tok string) string { return "https://x.test/m/" + tok }, nil)

	d.BookingChanged(context.Background(), bookings.EventCreated, sampleBooking())

	require.Len(t, q.jobs, 1)
	assert.Equal(t, "BK-LX2-ABC123", q.jobs[0].BookingID)
	assert.Equal(t, "https://x.test/m/V1StGXR8_Z5jdHi6B-myT", q.jobs[0].MagicLink)
	assert.Contains(t, Compose(q.jobs[0]), "https://x.test/m/V1StGXR8_Z5jdHi6B-myT")
}

func TestDispatcher_PaymentCarriesPaymentStatus(t *testing.T) {
	q := &fakeQueue{}
	d := NewDispatcher(q, nil, nil)
	b := sampleBooking()
	b.PaymentStatus = models.PaymentCompleted

	d.BookingChanged(context.Background(), bookings.EventPaymentUpdated, b)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, "completed", q.jobs[0].Status)
	assert.Empty(t, q.jobs[0].MagicLink)
}

func TestDispatcher_SkipsDetailEdits(t *testing.T) {
	q := &fakeQueue{}
	NewDispatcher(q, nil, nil).BookingChanged(context.Background(), bookings.EventDetailsUpdated, sampleBooking())
	assert.Empty(t, q.jobs)
}

func TestDispatcher_EnqueueFailureIsSwallowed(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	assert.NotPanics(t, func() {
		NewDispatcher(q, nil, nil).BookingChanged(context.Background(), bookings.EventConfirmed, sampleBooking())
	})
}

func TestCompose(t *testing.T) {
	p := queue.NotificationPayload{Event: bookings.EventConfirmed, BookingID: "BK-1", UserName: "Jane"}
	assert.Equal(t, "Hi Jane, your booking BK-1 is confirmed.", Compose(p))

	p.UserName = " "
	p.Event = bookings.EventCancelled
	assert.Equal(t, "Hi there, your booking BK-1 has been cancelled.", Compose(p))
}
