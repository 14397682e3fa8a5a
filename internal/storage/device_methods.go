package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// ========== Device Methods ==========

// CreateDevice creates a new device
func (s *PostgresStore) CreateDevice(ctx context.Context, device *models.Device) error {
	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now

	query := `
        INSERT INTO devices (
            device_id, created_at, updated_at, name, description,
            device_type, plate, protocol_version, is_disabled,
            first_seen_at, last_seen_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )`

	_, err := s.db.ExecContext(ctx, query,
		device.DeviceID, device.CreatedAt, device.UpdatedAt, device.Name,
		device.Description, device.DeviceType, device.Plate, device.ProtocolVer,
		device.IsDisabled, device.FirstSeenAt, device.LastSeenAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetDevice gets a device by its identifier
func (s *PostgresStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	query := `
        SELECT device_id, created_at, updated_at, name, description,
               device_type, plate, protocol_version, is_disabled,
               first_seen_at, last_seen_at
        FROM devices
        WHERE device_id = $1`

	device := &models.Device{}
	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(
		&device.DeviceID, &device.CreatedAt, &device.UpdatedAt, &device.Name,
		&device.Description, &device.DeviceType, &device.Plate, &device.ProtocolVer,
		&device.IsDisabled, &device.FirstSeenAt, &device.LastSeenAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return device, nil
}

// UpdateDevice updates a device
func (s *PostgresStore) UpdateDevice(ctx context.Context, device *models.Device) error {
	device.UpdatedAt = time.Now()

	query := `
        UPDATE devices
        SET updated_at = $2, name = $3, description = $4, device_type = $5,
            plate = $6, protocol_version = $7, is_disabled = $8,
            first_seen_at = $9, last_seen_at = $10
        WHERE device_id = $1`

	result, err := s.db.ExecContext(ctx, query,
		device.DeviceID, device.UpdatedAt, device.Name, device.Description,
		device.DeviceType, device.Plate, device.ProtocolVer, device.IsDisabled,
		device.FirstSeenAt, device.LastSeenAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteDevice deletes a device
func (s *PostgresStore) DeleteDevice(ctx context.Context, deviceID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListDevices lists devices
func (s *PostgresStore) ListDevices(ctx context.Context, limit, offset int) ([]*models.Device, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT device_id, created_at, updated_at, name, description,
               device_type, plate, protocol_version, is_disabled,
               first_seen_at, last_seen_at
        FROM devices
        ORDER BY device_id
        LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		device := &models.Device{}
		err := rows.Scan(
			&device.DeviceID, &device.CreatedAt, &device.UpdatedAt, &device.Name,
			&device.Description, &device.DeviceType, &device.Plate, &device.ProtocolVer,
			&device.IsDisabled, &device.FirstSeenAt, &device.LastSeenAt,
		)
		if err != nil {
			return nil, 0, err
		}
		devices = append(devices, device)
	}

	return devices, total, rows.Err()
}

// ========== Runtime Methods ==========

// UpdateRuntime upserts the persisted runtime snapshot of a device session
func (s *PostgresStore) UpdateRuntime(ctx context.Context, rt *models.DeviceRuntime) error {
	rt.UpdatedAt = time.Now()

	query := `
        INSERT INTO device_runtimes (
            device_id, address, gps_time, latitude, longitude, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (device_id) DO UPDATE
        SET address = $2, gps_time = $3, latitude = $4, longitude = $5, updated_at = $6`

	_, err := s.db.ExecContext(ctx, query,
		rt.DeviceID, rt.Address, rt.GPSTime, rt.Latitude, rt.Longitude, rt.UpdatedAt,
	)
	return err
}

// GetRuntime gets the persisted runtime snapshot of a device
func (s *PostgresStore) GetRuntime(ctx context.Context, deviceID string) (*models.DeviceRuntime, error) {
	query := `
        SELECT device_id, address, gps_time, latitude, longitude, updated_at
        FROM device_runtimes
        WHERE device_id = $1`

	rt := &models.DeviceRuntime{}
	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(
		&rt.DeviceID, &rt.Address, &rt.GPSTime, &rt.Latitude, &rt.Longitude, &rt.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return rt, nil
}
