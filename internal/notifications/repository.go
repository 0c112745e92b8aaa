package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// Repository handles notification_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one delivery attempt.
func (r *Repository) Insert(ctx context.Context, l *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (id, booking_id, event, channel, recipient, message, status, error_message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`
	_, err := r.pool.Exec(ctx, q, l.ID, l.BookingID, l.Event, l.Channel, l.Recipient, l.Message, l.Status,
		l.ErrorMessage, l.SentAt, l.CreatedAt)
	return bookings.ClassifyStoreError(err)
}

// ListByBooking returns notification logs for a booking, newest first.
func (r *Repository) ListByBooking(ctx context.Context, bookingID string) ([]*models.NotificationLog, error) {
	const q = `SELECT id, booking_id, event, channel, recipient, message, status, error_message, sent_at, created_at
		FROM notification_logs
		WHERE booking_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, bookingID)
	if err != nil {
		return nil, bookings.ClassifyStoreError(err)
	}
	defer rows.Close()
	list := make([]*models.NotificationLog, 0)
	for rows.Next() {
		var nl models.NotificationLog
		var errMsg *string
		if err := rows.Scan(&nl.ID, &nl.BookingID, &nl.Event, &nl.Channel, &nl.Recipient, &nl.Message, &nl.Status,
			&errMsg, &nl.SentAt, &nl.CreatedAt); err != nil {
			return nil, bookings.ClassifyStoreError(err)
		}
		if errMsg != nil {
			nl.ErrorMessage = *errMsg
		}
		list = append(list, &nl)
	}
	return list, bookings.ClassifyStoreError(rows.Err())
}
