package exports

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
	"github.com/lumen-tutoring/booking-backend/pkg/response"
	"github.com/lumen-tutoring/booking-backend/pkg/storage"
)

// BookingLookup resolves the :id path parameter (internal uuid or bookingId).
type BookingLookup interface {
	Get(ctx context.Context, id string) (*models.Booking, error)
}

// Enqueuer schedules export jobs.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) error
}

// Presigner issues download URLs for finished exports.
type Presigner interface {
	PresignExport(ctx context.Context, key string) (string, error)
}

// Handler handles analytics export endpoints. Either dependency may be nil when
// Redis or S3 is not configured; the affected endpoint then answers 503.
type Handler struct {
	bookings  BookingLookup
	queue     Enqueuer
	presigner Presigner
	now       func() time.Time
	logger    *zap.Logger
}

// NewHandler creates an exports handler.
func NewHandler(b BookingLookup, q Enqueuer, p Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{bookings: b, queue: q, presigner: p, now: time.Now, logger: logger}
}

// ExportQueued is returned when an export job is accepted.
type ExportQueued struct {
	BookingID string `json:"bookingId"`
	Key       string `json:"key"`
	Status    string `json:"status"`
}

// Request handles POST /api/admin/bookings/:id/analytics/export.
func (h *Handler) Request(c *gin.Context) {
	if h.queue == nil {
		response.ServiceUnavailable(c, "export queue not configured")
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		bookings.RespondError(c, h.logger, err)
		return
	}
	key := storage.ExportKey(b.BookingID, h.now())
	if err := h.queue.EnqueueExport(c.Request.Context(), queue.ExportPayload{
		BookingID:   b.BookingID,
		MagicLinkID: b.MagicLinkID,
		Key:         key,
	}); err != nil {
		h.logger.Error("enqueue export failed", zap.String("booking_id", b.BookingID), zap.Error(err))
		response.ServiceUnavailable(c, "failed to queue export")
		return
	}
	response.Accepted(c, ExportQueued{BookingID: b.BookingID, Key: key, Status: "queued"})
}

// DownloadURL handles GET /api/admin/exports/*key.
func (h *Handler) DownloadURL(c *gin.Context) {
	if h.presigner == nil {
		response.ServiceUnavailable(c, "export storage not configured")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !storage.ValidExportKey(key) {
		response.BadRequest(c, "invalid export key")
		return
	}
	url, err := h.presigner.PresignExport(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign export failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"key": key, "url": url})
}
