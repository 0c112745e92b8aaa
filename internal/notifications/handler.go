package notifications

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/response"
)

// Lister reads notification logs.
type Lister interface {
	ListByBooking(ctx context.Context, bookingID string) ([]*models.NotificationLog, error)
}

// BookingLookup resolves the :id path parameter.
type BookingLookup interface {
	Get(ctx context.Context, id string) (*models.Booking, error)
}

// Handler handles notification log HTTP endpoints.
type Handler struct {
	logs     Lister
	bookings BookingLookup
	logger   *zap.Logger
}

// NewHandler creates a notification logs handler.
func NewHandler(logs Lister, b BookingLookup, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, bookings: b, logger: logger}
}

// ListByBooking handles GET /api/admin/bookings/:id/notifications.
func (h *Handler) ListByBooking(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		bookings.RespondError(c, h.logger, err)
		return
	}
	logs, err := h.logs.ListByBooking(c.Request.Context(), b.BookingID)
	if err != nil {
		h.logger.Error("list notification logs failed", zap.String("booking_id", b.BookingID), zap.Error(err))
		response.Internal(c, "failed to load notification logs")
		return
	}
	response.OK(c, logs)
}
