package model

import "time"

// CloseReason records why an alert left the active state.
type CloseReason string

const (
	CloseExpired   CloseReason = "expired"
	CloseDismissed CloseReason = "dismissed"
)

// AlertEvent is the critical-condition banner. At most one is active.
type AlertEvent struct {
	ID          string      `json:"id"`
	Message     string      `json:"message"`
	Sensors     []string    `json:"sensors,omitempty"`
	TriggeredAt time.Time   `json:"triggered_at"`
	ClosedAt    time.Time   `json:"closed_at,omitempty"`
	Active      bool        `json:"active"`
	Reason      CloseReason `json:"reason,omitempty"`
}

// Notification is one entry of the notification panel.
type Notification struct {
	ID      string      `json:"id"`
	Message string      `json:"message"`
	Level   StatusLevel `json:"level"`
	Time    time.Time   `json:"time"`
}
