package bookings

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/pkg/response"
)

// RespondError translates a core error into the matching HTTP response.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrDuplicateIdentifier):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		response.ServiceUnavailable(c, "booking store unavailable, try again")
	default:
		if logger != nil {
			logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		}
		response.Internal(c, "internal error")
	}
}
