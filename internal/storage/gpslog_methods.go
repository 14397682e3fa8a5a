package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// ========== GPS Log Methods ==========

// AppendGPSLog appends a GPS log record
func (s *PostgresStore) AppendGPSLog(ctx context.Context, log *models.GPSLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()

	query := `
        INSERT INTO gps_logs (
            id, created_at, device_id, gps_time, valid, latitude, longitude,
            speed, course, status, mask, device_temp, engine_temp, vehicle_temp
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
        )`

	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.CreatedAt, log.DeviceID, log.GPSTime, log.Valid,
		log.Latitude, log.Longitude, log.Speed, log.Course, log.Status,
		log.Mask, log.DeviceTemp, log.EngineTemp, log.VehicleTemp,
	)
	return err
}

// ListGPSLogs lists GPS log records for a device, newest first
func (s *PostgresStore) ListGPSLogs(ctx context.Context, deviceID string, limit, offset int) ([]*models.GPSLog, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gps_logs WHERE device_id = $1`, deviceID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, device_id, gps_time, valid, latitude, longitude,
               speed, course, status, mask, device_temp, engine_temp, vehicle_temp
        FROM gps_logs
        WHERE device_id = $1
        ORDER BY gps_time DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []*models.GPSLog
	for rows.Next() {
		log := &models.GPSLog{}
		err := rows.Scan(
			&log.ID, &log.CreatedAt, &log.DeviceID, &log.GPSTime, &log.Valid,
			&log.Latitude, &log.Longitude, &log.Speed, &log.Course, &log.Status,
			&log.Mask, &log.DeviceTemp, &log.EngineTemp, &log.VehicleTemp,
		)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}
