package bookings

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-tutoring/booking-backend/internal/identifier"
	"github.com/lumen-tutoring/booking-backend/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) BookingChanged(_ context.Context, event string, _ *models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// fixedIDs returns the same pair until exhausted, then fresh ones.
type fixedIDs struct {
	mu        sync.Mutex
	collide   int
	calls     int
	bookingID string
	token     string
}

func (f *fixedIDs) NewBookingID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.collide {
		return f.bookingID, nil
	}
	return fmt.Sprintf("BK-FRESH-%d", f.calls), nil
}

func (f *fixedIDs) NewMagicLinkToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls <= f.collide {
		return f.token, nil
	}
	return fmt.Sprintf("token-fresh-%d", f.calls), nil
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingSink) {
	t.Helper()
	store := NewMemoryStore()
	sink := &recordingSink{}
	svc := NewService(store, identifier.NewGenerator(), sink, Options{MagicLinkBase: "http://localhost:8080/m/"}, nil)
	return svc, store, sink
}

func janeDoe(t *testing.T) NewBooking {
	t.Helper()
	date, err := time.Parse(time.RFC3339, "2025-03-01T10:00:00Z")
	require.NoError(t, err)
	return NewBooking{
		UserName:        "Jane Doe",
		UserPhone:       "+15551234567",
		AppointmentType: models.AppointmentConsultation,
		AppointmentDate: date,
	}
}

func TestCreate_InitialState(t *testing.T) {
	svc, _, sink := newTestService(t)
	b, err := svc.Create(context.Background(), janeDoe(t))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingConfirmation, b.Status)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	assert.NotEmpty(t, b.BookingID)
	assert.Len(t, b.MagicLinkID, identifier.MagicLinkTokenLength)
	assert.Zero(t, b.AccessCount)
	assert.Nil(t, b.ConfirmedAt)
	assert.Equal(t, "http://localhost:8080/m/"+b.MagicLinkID, svc.MagicLinkURL(b.MagicLinkID))
	assert.Equal(t, []string{EventCreated}, sink.Events())
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := janeDoe(t)
	in.UserName = "  "
	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = janeDoe(t)
	in.UserPhone = ""
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = janeDoe(t)
	in.AppointmentType = "massage"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = janeDoe(t)
	in.AppointmentDate = time.Time{}
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	ids := &fixedIDs{collide: 2, bookingID: "BK-TAKEN", token: "taken-token"}
	svc := NewService(store, ids, nil, Options{}, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)
	assert.Equal(t, "BK-TAKEN", first.BookingID)

	second, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)
	assert.NotEqual(t, first.BookingID, second.BookingID)
	assert.Equal(t, 3, ids.calls)
}

func TestCreate_DuplicateAfterRetryBudget(t *testing.T) {
	store := NewMemoryStore()
	ids := &fixedIDs{collide: 100, bookingID: "BK-TAKEN", token: "taken-token"}
	svc := NewService(store, ids, nil, Options{IDAttempts: 3}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)

	_, err = svc.Create(ctx, janeDoe(t))
	require.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.Equal(t, 4, ids.calls)
}

func TestCreate_UniqueAcrossManyCalls(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	const n = 10000
	seenIDs := make(map[string]struct{}, n)
	seenTokens := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		b, err := svc.Create(ctx, janeDoe(t))
		require.NoError(t, err)
		seenIDs[b.BookingID] = struct{}{}
		seenTokens[b.MagicLinkID] = struct{}{}
	}
	assert.Len(t, seenIDs, n)
	assert.Len(t, seenTokens, n)
}

func TestGet_ByInternalAndBookingID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)

	byUUID, err := svc.Get(ctx, b.ID.String())
	require.NoError(t, err)
	byHuman, err := svc.Get(ctx, b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, byUUID, byHuman)

	_, err = svc.Get(ctx, "BK-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetByMagicLink(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirm_Idempotent(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)

	first, err := svc.Confirm(ctx, b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, first.ConfirmedAt)

	again, err := svc.Confirm(ctx, b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, *first.ConfirmedAt, *again.ConfirmedAt)
	assert.Equal(t, first, again)
	assert.Equal(t, []string{EventCreated, EventConfirmed}, sink.Events())
}

func TestIllegalTransition_LeavesRecordUnchanged(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, b.BookingID)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, b.BookingID)
	require.NoError(t, err)

	before, err := svc.Get(ctx, b.BookingID)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, b.BookingID, models.StatusConfirmed, "")
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	after, err := svc.Get(ctx, b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTerminalStatus_RejectsFurtherMoves(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, b.BookingID)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, b.BookingID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, b.BookingID, "too late")
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	before, err := svc.Get(ctx, b.BookingID)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, b.BookingID, models.StatusPendingConfirmation, "")
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	after, err := svc.Get(ctx, b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPaymentOnCancelledBooking_Fails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, b.BookingID, "")
	require.NoError(t, err)

	amount := 50.0
	_, err = svc.UpdatePayment(ctx, b.BookingID, PaymentUpdate{Status: models.PaymentCompleted, Amount: &amount, Currency: "USD"})
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	got, err := svc.Get(ctx, b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Nil(t, got.PaymentAmount)
}

func TestPaymentRetryAfterFailure(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)

	steps := []models.PaymentStatus{
		models.PaymentProcessing, models.PaymentFailed, models.PaymentPending,
		models.PaymentProcessing, models.PaymentCompleted, models.PaymentRefunded,
	}
	for _, st := range steps {
		got, err := svc.UpdatePayment(ctx, b.BookingID, PaymentUpdate{Status: st})
		require.NoError(t, err, "to %s", st)
		assert.Equal(t, st, got.PaymentStatus)
	}
	_, err = svc.UpdatePayment(ctx, b.BookingID, PaymentUpdate{Status: models.PaymentPending})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestConcurrentPaymentUpdates_NoTornState(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc, _, _ := newTestService(t)
		ctx := context.Background()
		b, err := svc.Create(ctx, janeDoe(t))
		require.NoError(t, err)
		_, err = svc.UpdatePayment(ctx, b.BookingID, PaymentUpdate{Status: models.PaymentProcessing})
		require.NoError(t, err)

		amountA, amountB := 100.0, 75.0
		updates := []PaymentUpdate{
			{Status: models.PaymentCompleted, PaymentID: "pay_completed", Amount: &amountA, Currency: "USD"},
			{Status: models.PaymentFailed, PaymentID: "pay_failed", Amount: &amountB, Currency: "EUR"},
		}
		var wg sync.WaitGroup
		errs := make([]error, len(updates))
		for j, u := range updates {
			wg.Add(1)
			go func(j int, u PaymentUpdate) {
				defer wg.Done()
				_, errs[j] = svc.UpdatePayment(ctx, b.BookingID, u)
			}(j, u)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, ErrInvalidStateTransition)
			}
		}
		require.Equal(t, 1, wins)

		got, err := svc.Get(ctx, b.BookingID)
		require.NoError(t, err)
		switch got.PaymentStatus {
		case models.PaymentCompleted:
			assert.Equal(t, "pay_completed", *got.PaymentID)
			assert.Equal(t, "USD", *got.PaymentCurrency)
		case models.PaymentFailed:
			assert.Equal(t, "pay_failed", *got.PaymentID)
			assert.Equal(t, "EUR", *got.PaymentCurrency)
		default:
			t.Fatalf("unexpected payment status %s", got.PaymentStatus)
		}
	}
}

func TestUpdateDetails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)

	name := "Jane Q. Doe"
	details := models.BookingDetails{Subject: "Calculus", Level: "advanced", Duration: "60", Notes: "bring notes"}
	got, err := svc.UpdateDetails(ctx, b.BookingID, DetailsPatch{UserName: &name, Details: &details})
	require.NoError(t, err)
	assert.Equal(t, name, got.UserName)
	assert.Equal(t, details, got.Details)
	assert.Equal(t, b.UserPhone, got.UserPhone)
	assert.Equal(t, models.StatusPendingConfirmation, got.Status)

	empty := ""
	_, err = svc.UpdateDetails(ctx, b.BookingID, DetailsPatch{UserPhone: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Cancel(ctx, b.BookingID, "")
	require.NoError(t, err)
	_, err = svc.UpdateDetails(ctx, b.BookingID, DetailsPatch{UserName: &name})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestList_FiltersAndOrders(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryStore(), identifier.NewGenerator(), nil, Options{Now: func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}}, nil)
	ctx := context.Background()

	var created []*models.Booking
	for i := 0; i < 3; i++ {
		b, err := svc.Create(ctx, janeDoe(t))
		require.NoError(t, err)
		created = append(created, b)
	}
	_, err := svc.Confirm(ctx, created[1].BookingID)
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, created[2].BookingID, all[0].BookingID)

	confirmed, err := svc.List(ctx, ListFilter{Status: models.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, created[1].BookingID, confirmed[0].BookingID)

	_, err = svc.List(ctx, ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)
}

// slowStore blocks reads until the caller's context expires.
type slowStore struct {
	*MemoryStore
}

func (s slowStore) Get(ctx context.Context, _ string) (*models.Booking, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStoreTimeout_SurfacesUnavailable(t *testing.T) {
	svc := NewService(slowStore{NewMemoryStore()}, identifier.NewGenerator(), nil, Options{StoreTimeout: 20 * time.Millisecond}, nil)
	start := time.Now()
	_, err := svc.Get(context.Background(), "BK-ANY")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEndToEnd_JaneDoe(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, janeDoe(t))
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingConfirmation, b.Status)
	require.Equal(t, models.PaymentPending, b.PaymentStatus)

	accessed, err := svc.RecordAccess(ctx, b.MagicLinkID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, accessed.AccessCount)

	confirmed, err := svc.Confirm(ctx, b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)

	amount := 100.00
	paid, err := svc.UpdatePayment(ctx, b.BookingID, PaymentUpdate{Status: models.PaymentCompleted, PaymentID: "pay_123", Amount: &amount, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, paid.PaymentStatus)
	assert.Equal(t, 100.00, *paid.PaymentAmount)
	assert.Equal(t, "USD", *paid.PaymentCurrency)
	assert.NotNil(t, paid.PaymentUpdatedAt)
}
