package analytics

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/response"
)

// TrackRequest is the body for POST /api/magic-links/:token/track.
type TrackRequest struct {
	EventKind string         `json:"eventKind" binding:"required"`
	Metadata  map[string]any `json:"metadata"`
}

// Handler handles magic-link analytics endpoints.
type Handler struct {
	recorder *Recorder
	logger   *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(recorder *Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recorder: recorder, logger: logger}
}

// Track handles POST /api/magic-links/:token/track. Storage failures are
// logged and reported as not tracked so the page keeps working.
func (h *Handler) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	token := c.Param("token")
	ev, err := h.recorder.Record(c.Request.Context(), token, Event{
		Kind:          models.EventKind(req.EventKind),
		UserAgent:     c.Request.UserAgent(),
		SourceAddress: c.ClientIP(),
		Metadata:      req.Metadata,
	})
	switch {
	case err == nil:
		response.Accepted(c, gin.H{"tracked": true, "event": ev})
	case errors.Is(err, bookings.ErrNotFound), errors.Is(err, bookings.ErrValidation):
		bookings.RespondError(c, h.logger, err)
	default:
		h.logger.Warn("track event failed", zap.String("magic_link_id", token), zap.Error(err))
		response.Accepted(c, gin.H{"tracked": false})
	}
}

// ListEvents handles GET /api/magic-links/:token/events.
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.recorder.ListEvents(c.Request.Context(), c.Param("token"))
	if err != nil {
		bookings.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"events": events})
}

// Summary handles GET /api/magic-links/:token/summary.
func (h *Handler) Summary(c *gin.Context) {
	s, err := h.recorder.Summarize(c.Request.Context(), c.Param("token"))
	if err != nil {
		bookings.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, s)
}
