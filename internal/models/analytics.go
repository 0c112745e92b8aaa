package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a magic-link interaction.
type EventKind string

const (
	EventPageView  EventKind = "page_view"
	EventLinkClick EventKind = "link_click"
	EventCustom    EventKind = "custom"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventPageView, EventLinkClick, EventCustom:
		return true
	}
	return false
}

// AnalyticsEvent is one append-only interaction with a magic link.
// BookingID is a back-reference; the booking is owned by the booking store.
type AnalyticsEvent struct {
	ID            uuid.UUID      `json:"id"`
	MagicLinkID   string         `json:"magicLinkId"`
	BookingID     string         `json:"bookingId"`
	Kind          EventKind      `json:"eventKind"`
	Timestamp     time.Time      `json:"timestamp"`
	UserAgent     string         `json:"userAgent,omitempty"`
	SourceAddress string         `json:"sourceAddress,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AnalyticsSummary is a derived view over a magic link's events.
type AnalyticsSummary struct {
	MagicLinkID string            `json:"magicLinkId"`
	BookingID   string            `json:"bookingId"`
	AccessCount int64             `json:"accessCount"`
	FirstAccess *time.Time        `json:"firstAccess,omitempty"`
	LastAccess  *time.Time        `json:"lastAccess,omitempty"`
	EventCounts map[EventKind]int `json:"eventCounts"`
	TotalEvents int               `json:"totalEvents"`
}
