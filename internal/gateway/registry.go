package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// Session is the in-memory runtime state of one device. It is owned by the
// SessionRegistry; handlers borrow it for the duration of a call.
type Session struct {
	DeviceID string

	mu         sync.Mutex
	addr       *net.UDPAddr
	gpsTime    time.Time
	latitude   float64
	longitude  float64
	lastUpdate time.Time
}

// Addr returns the device's last known source address.
func (s *Session) Addr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Touch records traffic from the device, refreshing the source address and
// the idle clock.
func (s *Session) Touch(addr *net.UDPAddr, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr != nil {
		s.addr = addr
	}
	s.lastUpdate = now
}

// Runtime returns a snapshot of the session suitable for persistence.
func (s *Session) Runtime() *models.DeviceRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := ""
	if s.addr != nil {
		addr = s.addr.String()
	}
	return &models.DeviceRuntime{
		DeviceID:  s.DeviceID,
		Address:   addr,
		GPSTime:   s.gpsTime,
		Latitude:  s.latitude,
		Longitude: s.longitude,
		UpdatedAt: s.lastUpdate,
	}
}

// SessionRegistry tracks one session per device identifier. All operations
// are safe for concurrent use.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for a device, creating it atomically on
// first sight. created is true for exactly one caller per device identifier;
// callers use it to fire the connect notification exactly once.
func (r *SessionRegistry) GetOrCreate(deviceID string, addr *net.UDPAddr) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[deviceID]; ok {
		return s, false
	}

	s := &Session{
		DeviceID:   deviceID,
		addr:       addr,
		lastUpdate: time.Now(),
	}
	r.sessions[deviceID] = s
	return s, true
}

// Get returns the session for a device if one exists.
func (r *SessionRegistry) Get(deviceID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[deviceID]
	return s, ok
}

// UpdateFix overwrites the session's last known GPS time and position.
// Last write wins; out-of-order delivery can regress the recorded position.
func (r *SessionRegistry) UpdateFix(deviceID string, t time.Time, lat, lon float64) {
	r.mu.RLock()
	s, ok := r.sessions[deviceID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.gpsTime = t
	s.latitude = lat
	s.longitude = lon
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}

// Sweep removes every session idle longer than the timeout and returns the
// evicted device identifiers. The idle check and the removal happen under
// the same lock, so a session updated while the sweep runs is not evicted
// by that pass.
func (r *SessionRegistry) Sweep(now time.Time, timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastUpdate)
		s.mu.Unlock()

		if idle > timeout {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Snapshot returns the live sessions at the time of the call.
func (r *SessionRegistry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
