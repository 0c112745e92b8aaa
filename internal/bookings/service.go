package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// Booking change events emitted to an EventSink after a committed write.
const (
	EventCreated        = "booking_created"
	EventConfirmed      = "booking_confirmed"
	EventCancelled      = "booking_cancelled"
	EventCompleted      = "booking_completed"
	EventPaymentUpdated = "payment_updated"
	EventDetailsUpdated = "details_updated"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultIDAttempts   = 3
)

// IDGenerator mints booking ids and magic-link tokens.
type IDGenerator interface {
	NewBookingID() (string, error)
	NewMagicLinkToken() (string, error)
}

// EventSink is notified after a booking change is committed. Implementations
// must not block the caller for long; failures are theirs to log.
type EventSink interface {
	BookingChanged(ctx context.Context, event string, b *models.Booking)
}

// Sinks fans a change out to several sinks.
type Sinks []EventSink

// BookingChanged implements EventSink.
func (s Sinks) BookingChanged(ctx context.Context, event string, b *models.Booking) {
	for _, sink := range s {
		if sink != nil {
			sink.BookingChanged(ctx, event, b)
		}
	}
}

// Options configures a Service.
type Options struct {
	// StoreTimeout bounds every store call; expiry surfaces ErrStoreUnavailable.
	StoreTimeout time.Duration
	// IDAttempts is how many id pairs are tried before ErrDuplicateIdentifier.
	IDAttempts int
	// MagicLinkBase prefixes tokens when building the shareable link.
	MagicLinkBase string
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Service implements booking creation, lookup and guarded transitions.
type Service struct {
	store         Store
	ids           IDGenerator
	sink          EventSink
	timeout       time.Duration
	attempts      int
	magicLinkBase string
	now           func() time.Time
	logger        *zap.Logger
}

// NewService creates a booking service.
func NewService(store Store, ids IDGenerator, sink EventSink, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.IDAttempts <= 0 {
		opts.IDAttempts = defaultIDAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:         store,
		ids:           ids,
		sink:          sink,
		timeout:       opts.StoreTimeout,
		attempts:      opts.IDAttempts,
		magicLinkBase: strings.TrimRight(opts.MagicLinkBase, "/"),
		now:           opts.Now,
		logger:        logger,
	}
}

// NewBooking holds the attributes a client supplies on creation.
type NewBooking struct {
	UserName        string
	UserPhone       string
	AppointmentType models.AppointmentType
	AppointmentDate time.Time
	Details         models.BookingDetails
}

func (n NewBooking) validate() error {
	if strings.TrimSpace(n.UserName) == "" {
		return validationError("userName is required")
	}
	if strings.TrimSpace(n.UserPhone) == "" {
		return validationError("userPhone is required")
	}
	if !n.AppointmentType.Valid() {
		return validationError("unknown appointmentType %q", n.AppointmentType)
	}
	if n.AppointmentDate.IsZero() {
		return validationError("appointmentDate is required")
	}
	return nil
}

// MagicLinkURL returns the shareable link for a token.
func (s *Service) MagicLinkURL(token string) string {
	return s.magicLinkBase + "/" + token
}

// Create validates input, mints identifiers and persists a pending booking.
// Identifier collisions are retried up to the configured attempts.
func (s *Service) Create(ctx context.Context, in NewBooking) (*models.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		b, err := s.newRecord(in)
		if err != nil {
			return nil, err
		}
		err = unavailable(s.store.Insert(ctx, b))
		if err == nil {
			s.logger.Info("booking created", zap.String("booking_id", b.BookingID), zap.Int("attempt", attempt))
			s.emit(ctx, EventCreated, b)
			return b, nil
		}
		if !errors.Is(err, ErrDuplicateIdentifier) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("identifier collision, regenerating", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts: %v", ErrDuplicateIdentifier, s.attempts, lastErr)
}

func (s *Service) newRecord(in NewBooking) (*models.Booking, error) {
	bookingID, err := s.ids.NewBookingID()
	if err != nil {
		return nil, err
	}
	token, err := s.ids.NewMagicLinkToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &models.Booking{
		ID:              uuid.New(),
		BookingID:       bookingID,
		MagicLinkID:     token,
		UserName:        strings.TrimSpace(in.UserName),
		UserPhone:       strings.TrimSpace(in.UserPhone),
		AppointmentType: in.AppointmentType,
		AppointmentDate: in.AppointmentDate.UTC(),
		Details:         in.Details,
		Status:          models.StatusPendingConfirmation,
		PaymentStatus:   models.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Get returns a booking by internal uuid or booking id.
func (s *Service) Get(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.store.Get(ctx, id)
	return b, unavailable(err)
}

// GetByMagicLink returns the booking a token was issued for.
func (s *Service) GetByMagicLink(ctx context.Context, token string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.store.GetByMagicLink(ctx, token)
	return b, unavailable(err)
}

// RecordAccess increments the access count for a token and stamps lastAccessedAt.
func (s *Service) RecordAccess(ctx context.Context, token string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.store.RecordAccess(ctx, token, s.now().UTC())
	return b, unavailable(err)
}

// List returns bookings newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationError("unknown status %q", f.Status)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, validationError("unknown payment status %q", f.PaymentStatus)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	list, err := s.store.List(ctx, f)
	return list, unavailable(err)
}

// Confirm moves a pending booking to confirmed. Confirming twice is a no-op.
func (s *Service) Confirm(ctx context.Context, id string) (*models.Booking, error) {
	return s.mutate(ctx, id, EventConfirmed, func(b *models.Booking) error {
		return applyStatus(b, models.StatusConfirmed, "", s.now().UTC())
	})
}

// Cancel cancels a pending or confirmed booking.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*models.Booking, error) {
	return s.mutate(ctx, id, EventCancelled, func(b *models.Booking) error {
		return applyStatus(b, models.StatusCancelled, reason, s.now().UTC())
	})
}

// Complete marks a confirmed booking as completed.
func (s *Service) Complete(ctx context.Context, id string) (*models.Booking, error) {
	return s.mutate(ctx, id, EventCompleted, func(b *models.Booking) error {
		return applyStatus(b, models.StatusCompleted, "", s.now().UTC())
	})
}

// Transition moves a booking to an arbitrary target status through the graph.
func (s *Service) Transition(ctx context.Context, id string, to models.BookingStatus, reason string) (*models.Booking, error) {
	switch to {
	case models.StatusConfirmed:
		return s.Confirm(ctx, id)
	case models.StatusCancelled:
		return s.Cancel(ctx, id, reason)
	case models.StatusCompleted:
		return s.Complete(ctx, id)
	}
	if !to.Valid() {
		return nil, validationError("unknown status %q", to)
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, &TransitionError{Field: "status", From: string(b.Status), To: string(to)}
}

// UpdatePayment applies a payment status change together with its attributes.
func (s *Service) UpdatePayment(ctx context.Context, id string, u PaymentUpdate) (*models.Booking, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, EventPaymentUpdated, func(b *models.Booking) error {
		return applyPayment(b, u, s.now().UTC())
	})
}

// DetailsPatch overwrites non-status attributes. Nil fields are left alone.
type DetailsPatch struct {
	UserName        *string
	UserPhone       *string
	AppointmentDate *time.Time
	Details         *models.BookingDetails
}

// UpdateDetails overwrites non-status attributes of a booking that is not terminal.
func (s *Service) UpdateDetails(ctx context.Context, id string, p DetailsPatch) (*models.Booking, error) {
	if p.UserName != nil && strings.TrimSpace(*p.UserName) == "" {
		return nil, validationError("userName must not be empty")
	}
	if p.UserPhone != nil && strings.TrimSpace(*p.UserPhone) == "" {
		return nil, validationError("userPhone must not be empty")
	}
	if p.AppointmentDate != nil && p.AppointmentDate.IsZero() {
		return nil, validationError("appointmentDate must be a valid date")
	}
	return s.mutate(ctx, id, EventDetailsUpdated, func(b *models.Booking) error {
		if IsTerminalStatus(b.Status) {
			return &TransitionError{Field: "details", From: string(b.Status), To: string(b.Status), Reason: "booking is closed"}
		}
		if p.UserName != nil {
			b.UserName = strings.TrimSpace(*p.UserName)
		}
		if p.UserPhone != nil {
			b.UserPhone = strings.TrimSpace(*p.UserPhone)
		}
		if p.AppointmentDate != nil {
			b.AppointmentDate = p.AppointmentDate.UTC()
		}
		if p.Details != nil {
			b.Details = *p.Details
		}
		b.UpdatedAt = s.now().UTC()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id, event string, fn func(b *models.Booking) error) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	changed := false
	b, err := s.store.Update(ctx, id, func(b *models.Booking) error {
		err := fn(b)
		changed = err == nil
		return err
	})
	if err != nil {
		err = unavailable(err)
		if errors.Is(err, ErrInvalidStateTransition) {
			s.logger.Info("transition rejected", zap.String("id", id), zap.String("event", event), zap.Error(err))
		}
		return nil, err
	}
	if changed {
		s.emit(ctx, event, b)
	}
	return b, nil
}

func (s *Service) emit(ctx context.Context, event string, b *models.Booking) {
	if s.sink == nil {
		return
	}
	s.sink.BookingChanged(context.WithoutCancel(ctx), event, b.Clone())
}
