package models

import (
	"time"

	"github.com/google/uuid"
)

// GPSLog represents one stored GPS fix report
type GPSLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	DeviceID  string    `json:"deviceId" db:"device_id"`
	GPSTime   time.Time `json:"gpsTime" db:"gps_time"`
	Valid     bool      `json:"valid" db:"valid"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Speed     float64   `json:"speed" db:"speed"`
	Course    float64   `json:"course" db:"course"`
	Status    int64     `json:"status" db:"status"`
	Mask      int64     `json:"mask" db:"mask"`

	DeviceTemp  int `json:"deviceTemp" db:"device_temp"`
	EngineTemp  int `json:"engineTemp" db:"engine_temp"`
	VehicleTemp int `json:"vehicleTemp" db:"vehicle_temp"`
}
