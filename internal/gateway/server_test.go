package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okankilic/LisconVT-sub001/internal/config"
	"github.com/okankilic/LisconVT-sub001/internal/models"
	"github.com/okankilic/LisconVT-sub001/internal/storage"
	"github.com/okankilic/LisconVT-sub001/pkg/mdvr"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	fail     bool
	devices  map[string]*models.Device
	runtimes map[string]*models.DeviceRuntime
	gpsLogs  []*models.GPSLog
	alarms   map[string]*models.AlarmRecord
	events   []*models.EventLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices:  make(map[string]*models.Device),
		runtimes: make(map[string]*models.DeviceRuntime),
		alarms:   make(map[string]*models.AlarmRecord),
	}
}

func (f *fakeStore) CreateDevice(ctx context.Context, device *models.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	if _, ok := f.devices[device.DeviceID]; ok {
		return storage.ErrDuplicateKey
	}
	f.devices[device.DeviceID] = device
	return nil
}

func (f *fakeStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errStoreDown
	}
	d, ok := f.devices[deviceID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) UpdateDevice(ctx context.Context, device *models.Device) error { return nil }
func (f *fakeStore) DeleteDevice(ctx context.Context, deviceID string) error       { return nil }
func (f *fakeStore) ListDevices(ctx context.Context, limit, offset int) ([]*models.Device, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) UpdateRuntime(ctx context.Context, rt *models.DeviceRuntime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.runtimes[rt.DeviceID] = rt
	return nil
}

func (f *fakeStore) GetRuntime(ctx context.Context, deviceID string) (*models.DeviceRuntime, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStore) AppendGPSLog(ctx context.Context, log *models.GPSLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.gpsLogs = append(f.gpsLogs, log)
	return nil
}

func (f *fakeStore) ListGPSLogs(ctx context.Context, deviceID string, limit, offset int) ([]*models.GPSLog, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) SaveAlarm(ctx context.Context, alarm *models.AlarmRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.alarms[alarm.AlarmID] = alarm
	return nil
}

func (f *fakeStore) CloseAlarm(ctx context.Context, alarmID string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	if rec, ok := f.alarms[alarmID]; ok {
		rec.EndedAt = &endedAt
	}
	return nil
}

func (f *fakeStore) ListAlarms(ctx context.Context, deviceID string, limit, offset int) ([]*models.AlarmRecord, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error { return nil }
func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) CountUsers(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) CreateEventLog(ctx context.Context, event *models.EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) ListEventLogs(ctx context.Context, filters storage.EventLogFilters, limit, offset int) ([]*models.EventLog, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) Close() error { return nil }

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
	runtimes     int
}

func (n *fakeNotifier) Connected(deviceID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connected = append(n.connected, deviceID)
}

func (n *fakeNotifier) Disconnected(deviceID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnected = append(n.disconnected, deviceID)
}

func (n *fakeNotifier) RuntimeUpdated(rt *models.DeviceRuntime) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runtimes++
}

func newTestServer(store storage.Store, notifier *fakeNotifier) *Server {
	return &Server{
		store:    store,
		notifier: notifier,
		cfg: &config.GatewayConfig{
			HeartbeatInterval: config.Duration(10 * time.Second),
			SessionTimeout:    config.Duration(120 * time.Second),
			SendQueueSize:     16,
			SendWorkers:       1,
		},
		sessions: NewSessionRegistry(),
		alarms:   NewAlarmTracker(),
		enc:      mdvr.NewEncoder(),
		sendQ:    make(chan outbound, 16),
	}
}

// reportPayload builds a frame data block the way a device would send it.
func reportPayload(key string, tail ...string) []byte {
	fields := []string{
		"", "205", key, "34561", "",
		"170427 162322", "A",
		"+29", "2", "509033216",
		"+41", "1", "457910144",
		"4512", "9000",
		"123456", "65535",
		"25", "80", "22",
		"", "", "", "", "",
	}
	fields = append(fields, tail...)
	return []byte(strings.Join(fields, ","))
}

// drainFrame pops one outgoing frame and returns its decoded field list.
func drainFrame(t *testing.T, s *Server) []string {
	t.Helper()
	select {
	case ob := <-s.sendQ:
		dec := mdvr.NewTextFrameDecoder()
		frames := dec.Feed(ob.data)
		require.Len(t, frames, 1)
		return strings.Split(string(frames[0]), ",")
	default:
		t.Fatal("no frame enqueued")
		return nil
	}
}

func TestHandleFrameRegistration(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	payload := reportPayload(mdvr.KeyRegistration, "1.0", "MDVR", "78.186.62.229", "10001")
	s.handleFrame(payload, testAddr(40000))

	// Device auto-registered and connect notification fired.
	dev, ok := store.devices["34561"]
	require.True(t, ok)
	assert.Equal(t, "MDVR", dev.DeviceType)
	assert.Equal(t, []string{"34561"}, notifier.connected)

	// Acknowledgment frame: seq, key, device, original key, tail "1".
	fields := drainFrame(t, s)
	assert.Equal(t, mdvr.KeyAck, fields[2])
	assert.Equal(t, "34561", fields[3])
	assert.Equal(t, mdvr.KeyRegistration, fields[6])
	assert.Equal(t, "170427 162322", fields[7])
	assert.Equal(t, "Auto", fields[8])
	assert.Equal(t, "1", fields[9])
}

func TestHandleFrameRegistrationExistingDevice(t *testing.T) {
	store := newFakeStore()
	store.devices["34561"] = &models.Device{DeviceID: "34561"}
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	payload := reportPayload(mdvr.KeyRegistration, "1.0", "MDVR", "78.186.62.229", "10001")
	s.handleFrame(payload, testAddr(40000))

	// Still acknowledged, no duplicate insert.
	fields := drainFrame(t, s)
	assert.Equal(t, mdvr.KeyAck, fields[2])
	assert.Len(t, store.devices, 1)
}

func TestHandleFrameGpsLog(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	s.handleFrame(reportPayload(mdvr.KeyGpsLog), testAddr(40000))

	require.Len(t, store.gpsLogs, 1)
	rec := store.gpsLogs[0]
	assert.Equal(t, "34561", rec.DeviceID)
	assert.Equal(t, 41.029386, rec.Latitude)
	assert.Equal(t, 29.047473, rec.Longitude)
	assert.Equal(t, 45.12, rec.Speed)

	// GPS reports are not acknowledged.
	assert.Empty(t, s.sendQ)

	// Session runtime persisted and notified.
	rt, ok := store.runtimes["34561"]
	require.True(t, ok)
	assert.Equal(t, 41.029386, rt.Latitude)
	assert.Equal(t, 1, notifier.runtimes)
}

func TestHandleFrameAlarmLifecycle(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	start := reportPayload(mdvr.KeyAlarmStart,
		"170427 162355", "ALM-7", "1", "/sd/img/7.jpg", "0", "", "io", "Fire")
	s.handleFrame(start, testAddr(40000))

	rec, ok := s.alarms.Get("ALM-7")
	require.True(t, ok)
	assert.Equal(t, "Fire", rec.Name)
	assert.False(t, rec.Closed())
	require.Contains(t, store.alarms, "ALM-7")

	fields := drainFrame(t, s)
	assert.Equal(t, mdvr.KeyAck, fields[2])
	assert.Equal(t, "ALM-7", fields[9])

	end := reportPayload(mdvr.KeyAlarmEnd,
		"170427 162455", "ALM-7", "0", "", "0", "", "io", "Fire")
	s.handleFrame(end, testAddr(40000))

	rec, _ = s.alarms.Get("ALM-7")
	assert.True(t, rec.Closed())
	require.NotNil(t, store.alarms["ALM-7"].EndedAt)

	fields = drainFrame(t, s)
	assert.Equal(t, "ALM-7", fields[9])
}

func TestHandleFrameAlarmEndUnknownID(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	end := reportPayload(mdvr.KeyAlarmEnd,
		"170427 162455", "Y", "0", "", "0", "", "io", "Fire")
	s.handleFrame(end, testAddr(40000))

	// Unknown alarm id is ignored but still acknowledged.
	assert.Empty(t, s.alarms.List())
	assert.Empty(t, store.alarms)
	fields := drainFrame(t, s)
	assert.Equal(t, "Y", fields[9])
}

func TestHandleFrameUnknownKeyDropped(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	s.handleFrame(reportPayload("ZZZZ"), testAddr(40000))

	assert.Empty(t, s.sendQ)
	assert.Empty(t, notifier.connected)
	assert.Equal(t, 0, s.sessions.Len())
}

func TestHandleFramePersistenceFailureSuppressesResponse(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	payload := reportPayload(mdvr.KeyRegistration, "1.0", "MDVR", "78.186.62.229", "10001")
	s.handleFrame(payload, testAddr(40000))

	// The handler survives the failure but sends nothing.
	assert.Empty(t, s.sendQ)
	assert.Equal(t, 1, s.sessions.Len())
}

func TestSweepAndPing(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	s := newTestServer(store, notifier)

	now := time.Now()
	stale, _ := s.sessions.GetOrCreate("stale", testAddr(40000))
	stale.Touch(nil, now.Add(-121*time.Second))
	fresh, _ := s.sessions.GetOrCreate("fresh", testAddr(40001))
	fresh.Touch(nil, now.Add(-5*time.Second))

	s.sweepAndPing(now)

	assert.Equal(t, []string{"stale"}, notifier.disconnected)
	assert.Equal(t, 1, s.sessions.Len())

	fields := drainFrame(t, s)
	assert.Equal(t, mdvr.KeyHeartbeat, fields[2])
	assert.Equal(t, "fresh", fields[3])
	assert.Empty(t, s.sendQ)
}

func TestCommandsForOfflineDevice(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeNotifier{})

	assert.False(t, s.PushConfig("nope", []string{"p1"}))
	assert.False(t, s.VideoControl("nope", true, 1))
	assert.Empty(t, s.sendQ)
}

func TestCommandsForLiveDevice(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeNotifier{})
	s.sessions.GetOrCreate("34561", testAddr(40000))

	require.True(t, s.PushConfig("34561", []string{"interval=30"}))
	fields := drainFrame(t, s)
	assert.Equal(t, mdvr.KeyConfigPush, fields[2])
	assert.Equal(t, "34561", fields[3])
	assert.Equal(t, "interval=30", fields[6])

	require.True(t, s.VideoControl("34561", true, 2))
	fields = drainFrame(t, s)
	assert.Equal(t, mdvr.KeyVideoControl, fields[2])
	assert.Equal(t, "1", fields[6])
	assert.Equal(t, "2", fields[7])
}
