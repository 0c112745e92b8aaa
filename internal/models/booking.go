package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPendingConfirmation BookingStatus = "pending_confirmation"
	StatusConfirmed           BookingStatus = "confirmed"
	StatusCompleted           BookingStatus = "completed"
	StatusCancelled           BookingStatus = "cancelled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingConfirmation, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of a booking.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// AppointmentType is the kind of session being booked.
type AppointmentType string

const (
	AppointmentConsultation AppointmentType = "consultation"
	AppointmentTutorial     AppointmentType = "tutorial"
	AppointmentAssessment   AppointmentType = "assessment"
	AppointmentGroupSession AppointmentType = "group_session"
	AppointmentWorkshop     AppointmentType = "workshop"
)

// Valid reports whether t is a known appointment type.
func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentConsultation, AppointmentTutorial, AppointmentAssessment, AppointmentGroupSession, AppointmentWorkshop:
		return true
	}
	return false
}

// BookingDetails holds optional free-form attributes of a booking.
type BookingDetails struct {
	Subject  string `json:"subject,omitempty"`
	Level    string `json:"level,omitempty"`
	Duration string `json:"duration,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Booking represents one appointment request and its lifecycle state.
type Booking struct {
	ID                 uuid.UUID       `json:"internalId"`
	BookingID          string          `json:"bookingId"`
	MagicLinkID        string          `json:"magicLinkId"`
	UserName           string          `json:"userName"`
	UserPhone          string          `json:"userPhone"`
	AppointmentType    AppointmentType `json:"appointmentType"`
	AppointmentDate    time.Time       `json:"appointmentDate"`
	Details            BookingDetails  `json:"details"`
	Status             BookingStatus   `json:"status"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus"`
	PaymentID          *string         `json:"paymentId,omitempty"`
	PaymentAmount      *float64        `json:"paymentAmount,omitempty"`
	PaymentCurrency    *string         `json:"paymentCurrency,omitempty"`
	CancellationReason *string         `json:"cancellationReason,omitempty"`
	AccessCount        int64           `json:"accessCount"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	ConfirmedAt        *time.Time      `json:"confirmedAt,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	PaymentUpdatedAt   *time.Time      `json:"paymentUpdatedAt,omitempty"`
	LastAccessedAt     *time.Time      `json:"lastAccessedAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate without sharing pointers.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.PaymentID = cloneString(b.PaymentID)
	out.PaymentCurrency = cloneString(b.PaymentCurrency)
	out.CancellationReason = cloneString(b.CancellationReason)
	if b.PaymentAmount != nil {
		v := *b.PaymentAmount
		out.PaymentAmount = &v
	}
	out.ConfirmedAt = cloneTime(b.ConfirmedAt)
	out.CompletedAt = cloneTime(b.CompletedAt)
	out.CancelledAt = cloneTime(b.CancelledAt)
	out.PaymentUpdatedAt = cloneTime(b.PaymentUpdatedAt)
	out.LastAccessedAt = cloneTime(b.LastAccessedAt)
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
