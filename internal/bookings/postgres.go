package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-tutoring/booking-backend/internal/models"
)

const bookingColumns = `id, booking_id, magic_link_id, user_name, user_phone, appointment_type, appointment_date, details,
	status, payment_status, payment_id, payment_amount, payment_currency, cancellation_reason, access_count,
	created_at, updated_at, confirmed_at, completed_at, cancelled_at, payment_updated_at, last_accessed_at`

// PostgresStore persists bookings in PostgreSQL. Updates lock the row with
// SELECT ... FOR UPDATE inside a transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a bookings repository.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Insert(ctx context.Context, b *models.Booking) error {
	const q = `INSERT INTO bookings (id, booking_id, magic_link_id, user_name, user_phone, appointment_type, appointment_date,
		details, status, payment_status, access_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.pool.Exec(ctx, q, b.ID, b.BookingID, b.MagicLinkID, b.UserName, b.UserPhone, string(b.AppointmentType),
		b.AppointmentDate, b.Details, string(b.Status), string(b.PaymentStatus), b.AccessCount, b.CreatedAt, b.UpdatedAt)
	return ClassifyStoreError(err)
}

func (r *PostgresStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	where, arg := lookupClause(id)
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where, arg)
	b, err := scanBooking(row)
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	return b, nil
}

func (r *PostgresStore) GetByMagicLink(ctx context.Context, token string) (*models.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE magic_link_id = $1`, token)
	b, err := scanBooking(row)
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	return b, nil
}

func (r *PostgresStore) Update(ctx context.Context, id string, mutate func(b *models.Booking) error) (*models.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	where, arg := lookupClause(id)
	cur, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where+` FOR UPDATE`, arg))
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		if errors.Is(err, errUnchanged) {
			return cur, nil
		}
		return nil, err
	}

	const q = `UPDATE bookings SET user_name = $2, user_phone = $3, appointment_date = $4, details = $5,
		status = $6, payment_status = $7, payment_id = $8, payment_amount = $9, payment_currency = $10,
		cancellation_reason = $11, updated_at = $12, confirmed_at = $13, completed_at = $14, cancelled_at = $15,
		payment_updated_at = $16
		WHERE id = $1`
	if _, err := tx.Exec(ctx, q, next.ID, next.UserName, next.UserPhone, next.AppointmentDate, next.Details,
		string(next.Status), string(next.PaymentStatus), next.PaymentID, next.PaymentAmount, next.PaymentCurrency,
		next.CancellationReason, next.UpdatedAt, next.ConfirmedAt, next.CompletedAt, next.CancelledAt,
		next.PaymentUpdatedAt); err != nil {
		return nil, ClassifyStoreError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, ClassifyStoreError(err)
	}
	return next, nil
}

func (r *PostgresStore) RecordAccess(ctx context.Context, token string, at time.Time) (*models.Booking, error) {
	q := `UPDATE bookings SET access_count = access_count + 1,
		last_accessed_at = GREATEST(COALESCE(last_accessed_at, $2), $2)
		WHERE magic_link_id = $1
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.pool.QueryRow(ctx, q, token, at))
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	return b, nil
}

func (r *PostgresStore) List(ctx context.Context, f ListFilter) ([]models.Booking, error) {
	f = f.normalized()
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ($1 = '' OR status = $1) AND ($2 = '' OR payment_status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, string(f.Status), string(f.PaymentStatus), f.Limit, f.Offset)
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	defer rows.Close()
	list := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, ClassifyStoreError(err)
		}
		list = append(list, *b)
	}
	return list, ClassifyStoreError(rows.Err())
}

func lookupClause(id string) (string, any) {
	if u, err := uuid.Parse(id); err == nil {
		return "id = $1", u
	}
	return "booking_id = $1", id
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	var appointmentType, status, paymentStatus string
	err := row.Scan(&b.ID, &b.BookingID, &b.MagicLinkID, &b.UserName, &b.UserPhone, &appointmentType, &b.AppointmentDate,
		&b.Details, &status, &paymentStatus, &b.PaymentID, &b.PaymentAmount, &b.PaymentCurrency, &b.CancellationReason,
		&b.AccessCount, &b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt, &b.CompletedAt, &b.CancelledAt, &b.PaymentUpdatedAt,
		&b.LastAccessedAt)
	if err != nil {
		return nil, err
	}
	b.AppointmentType = models.AppointmentType(appointmentType)
	b.Status = models.BookingStatus(status)
	b.PaymentStatus = models.PaymentStatus(paymentStatus)
	return &b, nil
}
