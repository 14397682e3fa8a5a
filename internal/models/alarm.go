package models

import (
	"time"
)

// AlarmRecord correlates an alarm-start report with its later alarm-end
// report by shared alarm identifier. EndedAt stays nil while the alarm is
// open.
type AlarmRecord struct {
	AlarmID   string     `json:"alarmId" db:"alarm_id"`
	DeviceID  string     `json:"deviceId" db:"device_id"`
	Name      string     `json:"name" db:"name"`
	Source    string     `json:"source" db:"source"`
	StartedAt time.Time  `json:"startedAt" db:"started_at"`
	EndedAt   *time.Time `json:"endedAt,omitempty" db:"ended_at"`
}

// Closed reports whether the alarm-end report has arrived.
func (a *AlarmRecord) Closed() bool {
	return a.EndedAt != nil
}
