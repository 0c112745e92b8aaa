package bookings

import (
	"strings"
	"time"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

var statusTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPendingConfirmation: {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:           {models.StatusCompleted, models.StatusCancelled},
}

var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending:    {models.PaymentProcessing},
	models.PaymentProcessing: {models.PaymentCompleted, models.PaymentFailed},
	models.PaymentCompleted:  {models.PaymentRefunded},
	models.PaymentFailed:     {models.PaymentPending},
}

// CanTransitionStatus reports whether the booking status graph has an edge from -> to.
func CanTransitionStatus(from, to models.BookingStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether the payment graph has an edge from -> to.
func CanTransitionPayment(from, to models.PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no status move leaves s.
func IsTerminalStatus(s models.BookingStatus) bool {
	return s == models.StatusCompleted || s == models.StatusCancelled
}

func isSettledPayment(s models.PaymentStatus) bool {
	return s == models.PaymentCompleted || s == models.PaymentFailed || s == models.PaymentRefunded
}

// paymentReachable allows the graph edges plus pending -> {completed, failed},
// which passes through processing inside a single write (stubbed processor).
func paymentReachable(from, to models.PaymentStatus) bool {
	if CanTransitionPayment(from, to) {
		return true
	}
	return from == models.PaymentPending && CanTransitionPayment(models.PaymentProcessing, to)
}

// applyStatus moves b to the target status. Confirming a confirmed booking
// returns errUnchanged.
func applyStatus(b *models.Booking, to models.BookingStatus, reason string, now time.Time) error {
	if !to.Valid() {
		return validationError("unknown status %q", to)
	}
	if b.Status == models.StatusConfirmed && to == models.StatusConfirmed {
		return errUnchanged
	}
	if !CanTransitionStatus(b.Status, to) {
		return &TransitionError{Field: "status", From: string(b.Status), To: string(to)}
	}
	b.Status = to
	b.UpdatedAt = now
	switch to {
	case models.StatusConfirmed:
		if b.ConfirmedAt == nil {
			t := now
			b.ConfirmedAt = &t
		}
	case models.StatusCompleted:
		t := now
		b.CompletedAt = &t
	case models.StatusCancelled:
		t := now
		b.CancelledAt = &t
		if r := strings.TrimSpace(reason); r != "" {
			b.CancellationReason = &r
		}
	}
	return nil
}

// PaymentUpdate is a requested payment status change with its attributes.
type PaymentUpdate struct {
	Status    models.PaymentStatus
	PaymentID string
	Amount    *float64
	Currency  string
}

func (u PaymentUpdate) validate() error {
	if !u.Status.Valid() {
		return validationError("unknown payment status %q", u.Status)
	}
	if u.Amount != nil && *u.Amount < 0 {
		return validationError("payment amount must not be negative")
	}
	if u.Currency != "" && len(strings.TrimSpace(u.Currency)) != 3 {
		return validationError("currency must be a 3-letter code")
	}
	return nil
}

// applyPayment moves b's payment status and, on settlement, writes the payment
// id, amount, currency and paymentUpdatedAt in the same mutation.
func applyPayment(b *models.Booking, u PaymentUpdate, now time.Time) error {
	if err := u.validate(); err != nil {
		return err
	}
	if !paymentReachable(b.PaymentStatus, u.Status) {
		return &TransitionError{Field: "paymentStatus", From: string(b.PaymentStatus), To: string(u.Status)}
	}
	if b.Status == models.StatusCancelled && (u.Status == models.PaymentProcessing || u.Status == models.PaymentCompleted) {
		return &TransitionError{
			Field:  "paymentStatus",
			From:   string(b.PaymentStatus),
			To:     string(u.Status),
			Reason: "booking is cancelled",
		}
	}
	b.PaymentStatus = u.Status
	b.UpdatedAt = now
	if u.PaymentID != "" {
		id := u.PaymentID
		b.PaymentID = &id
	}
	if isSettledPayment(u.Status) {
		if u.Amount != nil {
			amt := *u.Amount
			b.PaymentAmount = &amt
		}
		if u.Currency != "" {
			cur := strings.ToUpper(strings.TrimSpace(u.Currency))
			b.PaymentCurrency = &cur
		}
		t := now
		b.PaymentUpdatedAt = &t
	}
	return nil
}
