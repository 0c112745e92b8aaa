package bookings

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStoreError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	other := errors.New("syntax error at or near SELECT")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "bookings_booking_id_key"}, ErrDuplicateIdentifier},
		{"dial refused", fmt.Errorf("failed to connect to `host=127.0.0.1`: %w", refused), ErrStoreUnavailable},
		{"deadline", context.DeadlineExceeded, ErrStoreUnavailable},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrStoreUnavailable},
		{"already classified", fmt.Errorf("%w: pool closed", ErrStoreUnavailable), ErrStoreUnavailable},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, nil},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStoreError(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Same(t, tt.in, got)
				assert.False(t, errors.Is(got, ErrStoreUnavailable))
				assert.False(t, errors.Is(got, ErrDuplicateIdentifier))
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestClassifyStoreError_KeepsConstraintName(t *testing.T) {
	err := ClassifyStoreError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_magic_link_id_key"})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.Contains(t, err.Error(), "bookings_magic_link_id_key")
}
