package magiclink

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/pkg/response"
)

// Handler handles magic-link redirect and preview endpoints.
type Handler struct {
	resolver     *Resolver
	frontendBase string
	logger       *zap.Logger
}

// NewHandler creates a magic-link handler. frontendBase is used for the
// not-found fallback page.
func NewHandler(resolver *Resolver, frontendBase string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{resolver: resolver, frontendBase: frontendBase, logger: logger}
}

// Redirect handles GET /m/:token. Browsers get a 302; unknown tokens land on
// the frontend's not-found page.
func (h *Handler) Redirect(c *gin.Context) {
	token := c.Param("token")
	target, err := h.resolver.Resolve(c.Request.Context(), token, Visit{
		UserAgent:     c.Request.UserAgent(),
		SourceAddress: c.ClientIP(),
		Referer:       c.Request.Referer(),
	})
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			h.logger.Info("unknown magic link", zap.String("token", token))
			c.Redirect(http.StatusFound, h.frontendBase+"/booking/not-found?source="+SourceMagicLink)
			return
		}
		bookings.RespondError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, target.URL)
}

// Resolve handles POST /api/magic-links/:token/resolve for API callers that
// want the target as JSON instead of a redirect.
func (h *Handler) Resolve(c *gin.Context) {
	target, err := h.resolver.Resolve(c.Request.Context(), c.Param("token"), Visit{
		UserAgent:     c.Request.UserAgent(),
		SourceAddress: c.ClientIP(),
	})
	if err != nil {
		bookings.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{
		"bookingId":   target.BookingID,
		"redirectUrl": target.URL,
		"accessCount": target.Booking.AccessCount,
	})
}

// Preview handles GET /api/magic-links/:token/preview.
func (h *Handler) Preview(c *gin.Context) {
	p, err := h.resolver.Preview(c.Request.Context(), c.Param("token"))
	if err != nil {
		bookings.RespondError(c, h.logger, err)
		return
	}
	response.OK(c, p)
}
