package gateway

import (
	"sync"
	"time"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// AlarmTracker correlates alarm-start and alarm-end reports by alarm
// identifier. Records are retained for the gateway's lifetime.
type AlarmTracker struct {
	mu      sync.Mutex
	records map[string]*models.AlarmRecord
}

// NewAlarmTracker creates an empty tracker.
func NewAlarmTracker() *AlarmTracker {
	return &AlarmTracker{
		records: make(map[string]*models.AlarmRecord),
	}
}

// OpenIfAbsent records an alarm start. A start report for an already-open
// alarm is not an error and does not overwrite the original start time;
// opened is true only for the first report.
func (t *AlarmTracker) OpenIfAbsent(alarmID, deviceID, name, source string, startedAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[alarmID]; ok {
		return false
	}

	t.records[alarmID] = &models.AlarmRecord{
		AlarmID:   alarmID,
		DeviceID:  deviceID,
		Name:      name,
		Source:    source,
		StartedAt: startedAt,
	}
	return true
}

// Close sets the end time of an open alarm. An end report with an unknown
// identifier is silently ignored; no record is synthesized.
func (t *AlarmTracker) Close(alarmID string, endedAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[alarmID]
	if !ok {
		return false
	}
	rec.EndedAt = &endedAt
	return true
}

// Get returns a copy of the record for an alarm identifier.
func (t *AlarmTracker) Get(alarmID string) (*models.AlarmRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[alarmID]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// List returns copies of all tracked alarm records.
func (t *AlarmTracker) List() []*models.AlarmRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*models.AlarmRecord, 0, len(t.records))
	for _, rec := range t.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out
}
