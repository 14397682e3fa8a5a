package models

import (
	"time"
)

// Device represents a registered MDVR unit
type Device struct {
	DeviceID    string    `json:"deviceId" db:"device_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	DeviceType  string    `json:"deviceType" db:"device_type"`
	Plate       string    `json:"plate" db:"plate"`
	ProtocolVer string    `json:"protocolVersion" db:"protocol_version"`
	IsDisabled  bool      `json:"isDisabled" db:"is_disabled"`

	FirstSeenAt *time.Time `json:"firstSeenAt,omitempty" db:"first_seen_at"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
}

// DeviceRuntime is the persisted snapshot of a device's in-memory session
type DeviceRuntime struct {
	DeviceID  string    `json:"deviceId" db:"device_id"`
	Address   string    `json:"address" db:"address"`
	GPSTime   time.Time `json:"gpsTime" db:"gps_time"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
