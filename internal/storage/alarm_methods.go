package storage

import (
	"context"
	"time"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// ========== Alarm Methods ==========

// SaveAlarm inserts an alarm record, keeping the original start time if the
// alarm identifier already exists
func (s *PostgresStore) SaveAlarm(ctx context.Context, alarm *models.AlarmRecord) error {
	query := `
        INSERT INTO alarms (alarm_id, device_id, name, source, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (alarm_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		alarm.AlarmID, alarm.DeviceID, alarm.Name, alarm.Source,
		alarm.StartedAt, alarm.EndedAt,
	)
	return err
}

// CloseAlarm sets the end time of an open alarm; unknown identifiers are a
// no-op
func (s *PostgresStore) CloseAlarm(ctx context.Context, alarmID string, endedAt time.Time) error {
	query := `
        UPDATE alarms
        SET ended_at = $2
        WHERE alarm_id = $1 AND ended_at IS NULL`

	_, err := s.db.ExecContext(ctx, query, alarmID, endedAt)
	return err
}

// ListAlarms lists alarm records, newest first. An empty device identifier
// lists alarms for all devices.
func (s *PostgresStore) ListAlarms(ctx context.Context, deviceID string, limit, offset int) ([]*models.AlarmRecord, int64, error) {
	countQuery := `SELECT COUNT(*) FROM alarms WHERE ($1 = '' OR device_id = $1)`

	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT alarm_id, device_id, name, source, started_at, ended_at
        FROM alarms
        WHERE ($1 = '' OR device_id = $1)
        ORDER BY started_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, deviceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var alarms []*models.AlarmRecord
	for rows.Next() {
		alarm := &models.AlarmRecord{}
		err := rows.Scan(
			&alarm.AlarmID, &alarm.DeviceID, &alarm.Name, &alarm.Source,
			&alarm.StartedAt, &alarm.EndedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		alarms = append(alarms, alarm)
	}

	return alarms, total, rows.Err()
}
