package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
)

// PostgresStore handles magic_link_events.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an analytics event repository.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append inserts one event row.
func (r *PostgresStore) Append(ctx context.Context, ev *models.AnalyticsEvent) error {
	const q = `INSERT INTO magic_link_events (id, magic_link_id, booking_id, event_kind, occurred_at, user_agent, source_address, metadata)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`
	_, err := r.pool.Exec(ctx, q, ev.ID, ev.MagicLinkID, ev.BookingID, string(ev.Kind), ev.Timestamp,
		ev.UserAgent, ev.SourceAddress, ev.Metadata)
	return bookings.ClassifyStoreError(err)
}

// ListByMagicLink returns events for a magic link, oldest first.
func (r *PostgresStore) ListByMagicLink(ctx context.Context, magicLinkID string) ([]models.AnalyticsEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, magic_link_id, booking_id, event_kind, occurred_at, COALESCE(user_agent, ''), COALESCE(source_address, ''), metadata
		 FROM magic_link_events WHERE magic_link_id = $1 ORDER BY occurred_at ASC, id ASC`,
		magicLinkID)
	if err != nil {
		return nil, bookings.ClassifyStoreError(err)
	}
	defer rows.Close()
	list := make([]models.AnalyticsEvent, 0)
	for rows.Next() {
		var ev models.AnalyticsEvent
		var kind string
		if err := rows.Scan(&ev.ID, &ev.MagicLinkID, &ev.BookingID, &kind, &ev.Timestamp, &ev.UserAgent, &ev.SourceAddress, &ev.Metadata); err != nil {
			return nil, bookings.ClassifyStoreError(err)
		}
		ev.Kind = models.EventKind(kind)
		list = append(list, ev)
	}
	return list, bookings.ClassifyStoreError(rows.Err())
}
