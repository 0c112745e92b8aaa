package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLogStatus for delivery.
const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// NotificationChannelSMS is the only channel bookings carry a contact for (userPhone).
const NotificationChannelSMS = "sms"

// NotificationLog records a booking notification handled by the worker.
type NotificationLog struct {
	ID           uuid.UUID  `json:"id"`
	BookingID    string     `json:"bookingId"`
	Event        string     `json:"event"`
	Channel      string     `json:"channel"`
	Recipient    string     `json:"recipient"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
