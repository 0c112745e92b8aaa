package bookings

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/response"
)

// CreateRequest is the body for POST /api/bookings.
type CreateRequest struct {
	UserName        string                `json:"userName" binding:"required"`
	UserPhone       string                `json:"userPhone" binding:"required"`
	AppointmentType string                `json:"appointmentType" binding:"required"`
	AppointmentDate string                `json:"appointmentDate" binding:"required"`
	Details         models.BookingDetails `json:"details"`
}

// CreateResponse is returned from POST /api/bookings.
type CreateResponse struct {
	BookingID string               `json:"bookingId"`
	UUID      string               `json:"uuid"`
	MagicLink string               `json:"magicLink"`
	Status    models.BookingStatus `json:"status"`
	Message   string               `json:"message"`
}

// StatusRequest is the body for PATCH /api/bookings/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// CancelRequest is the optional body for POST /api/bookings/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// PaymentRequest is the body for PATCH /api/bookings/:id/payment.
type PaymentRequest struct {
	PaymentStatus string   `json:"paymentStatus" binding:"required"`
	PaymentID     string   `json:"paymentId"`
	Amount        *float64 `json:"amount"`
	Currency      string   `json:"currency"`
}

// DetailsRequest is the body for PATCH /api/bookings/:id.
type DetailsRequest struct {
	UserName        *string                `json:"userName"`
	UserPhone       *string                `json:"userPhone"`
	AppointmentDate *string                `json:"appointmentDate"`
	Details         *models.BookingDetails `json:"details"`
}

// Handler handles booking HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /api/bookings.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, err := ParseAppointmentDate(req.AppointmentDate)
	if err != nil {
		response.BadRequest(c, "invalid appointmentDate")
		return
	}
	b, err := h.svc.Create(c.Request.Context(), NewBooking{
		UserName:        req.UserName,
		UserPhone:       req.UserPhone,
		AppointmentType: models.AppointmentType(req.AppointmentType),
		AppointmentDate: date,
		Details:         req.Details,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.Created(c, CreateResponse{
		BookingID: b.BookingID,
		UUID:      b.ID.String(),
		MagicLink: h.svc.MagicLinkURL(b.MagicLinkID),
		Status:    b.Status,
		Message:   "Booking created. Use the magic link to view, confirm and pay.",
	})
}

// Get handles GET /api/bookings/:id (internal uuid or booking id).
func (h *Handler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.OK(c, b)
}

// List handles GET /api/admin/bookings.
func (h *Handler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		response.BadRequest(c, "limit must be an integer")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		response.BadRequest(c, "offset must be an integer")
		return
	}
	f := ListFilter{
		Status:        models.BookingStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Limit:         limit,
		Offset:        offset,
	}.normalized()
	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"bookings": list, "limit": f.Limit, "offset": f.Offset})
}

// Confirm handles POST /api/bookings/:id/confirm.
func (h *Handler) Confirm(c *gin.Context) {
	h.respond(c)(h.svc.Confirm(c.Request.Context(), c.Param("id")))
}

// Cancel handles POST /api/bookings/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelRequest
	_ = c.ShouldBindJSON(&req)
	h.respond(c)(h.svc.Cancel(c.Request.Context(), c.Param("id"), req.Reason))
}

// Complete handles POST /api/bookings/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	h.respond(c)(h.svc.Complete(c.Request.Context(), c.Param("id")))
}

// UpdateStatus handles PATCH /api/bookings/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.respond(c)(h.svc.Transition(c.Request.Context(), c.Param("id"), models.BookingStatus(req.Status), req.Reason))
}

// UpdatePayment handles PATCH /api/bookings/:id/payment.
func (h *Handler) UpdatePayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.respond(c)(h.svc.UpdatePayment(c.Request.Context(), c.Param("id"), PaymentUpdate{
		Status:    models.PaymentStatus(req.PaymentStatus),
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Currency:  req.Currency,
	}))
}

// UpdateDetails handles PATCH /api/bookings/:id.
func (h *Handler) UpdateDetails(c *gin.Context) {
	var req DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	patch := DetailsPatch{UserName: req.UserName, UserPhone: req.UserPhone, Details: req.Details}
	if req.AppointmentDate != nil {
		d, err := ParseAppointmentDate(*req.AppointmentDate)
		if err != nil {
			response.BadRequest(c, "invalid appointmentDate")
			return
		}
		patch.AppointmentDate = &d
	}
	h.respond(c)(h.svc.UpdateDetails(c.Request.Context(), c.Param("id"), patch))
}

func (h *Handler) respond(c *gin.Context) func(*models.Booking, error) {
	return func(b *models.Booking, err error) {
		if err != nil {
			RespondError(c, h.logger, err)
			return
		}
		response.OK(c, b)
	}
}

var appointmentLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// ParseAppointmentDate accepts RFC3339 and the date/datetime-local forms browsers send.
func ParseAppointmentDate(s string) (time.Time, error) {
	var err error
	for _, layout := range appointmentLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
