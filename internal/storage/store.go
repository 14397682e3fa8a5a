package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Device methods
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	UpdateDevice(ctx context.Context, device *models.Device) error
	DeleteDevice(ctx context.Context, deviceID string) error
	ListDevices(ctx context.Context, limit, offset int) ([]*models.Device, int64, error)

	// Runtime snapshot methods
	UpdateRuntime(ctx context.Context, rt *models.DeviceRuntime) error
	GetRuntime(ctx context.Context, deviceID string) (*models.DeviceRuntime, error)

	// GPS log methods
	AppendGPSLog(ctx context.Context, log *models.GPSLog) error
	ListGPSLogs(ctx context.Context, deviceID string, limit, offset int) ([]*models.GPSLog, int64, error)

	// Alarm methods
	SaveAlarm(ctx context.Context, alarm *models.AlarmRecord) error
	CloseAlarm(ctx context.Context, alarmID string, endedAt time.Time) error
	ListAlarms(ctx context.Context, deviceID string, limit, offset int) ([]*models.AlarmRecord, int64, error)

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Event log methods
	CreateEventLog(ctx context.Context, event *models.EventLog) error
	ListEventLogs(ctx context.Context, filters EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error)

	// Close the store
	Close() error
}

// EventLogFilters represents filters for event logs
type EventLogFilters struct {
	DeviceID  *string
	Type      *models.EventType
	Level     *models.EventLevel
	StartTime *time.Time
	EndTime   *time.Time
}
