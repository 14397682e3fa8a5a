package models

import (
	"time"

	"github.com/google/uuid"
)

// EventLog represents an event log entry
type EventLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	DeviceID *string `json:"deviceId,omitempty" db:"device_id"`

	Type        EventType  `json:"type" db:"type"`
	Level       EventLevel `json:"level" db:"level"`
	Description string     `json:"description" db:"description"`

	Details Variables `json:"details,omitempty" db:"details"`
}

// EventType represents event types
type EventType string

const (
	// Device events
	EventTypeConnected    EventType = "DEVICE_CONNECTED"
	EventTypeDisconnected EventType = "DEVICE_DISCONNECTED"
	EventTypeRegistration EventType = "REGISTRATION"
	EventTypeAlarmOpened  EventType = "ALARM_OPENED"
	EventTypeAlarmClosed  EventType = "ALARM_CLOSED"
	EventTypeMediaSession EventType = "MEDIA_SESSION"

	// System events
	EventTypeError EventType = "ERROR"
)

// EventLevel represents event severity levels
type EventLevel string

const (
	EventLevelDebug   EventLevel = "DEBUG"
	EventLevelInfo    EventLevel = "INFO"
	EventLevelWarning EventLevel = "WARNING"
	EventLevelError   EventLevel = "ERROR"
)
