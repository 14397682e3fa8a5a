package gateway

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: port}
}

func TestGetOrCreateCreatedExactlyOnce(t *testing.T) {
	r := NewSessionRegistry()

	const workers = 100
	var wg sync.WaitGroup
	var createdCount int32
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created := r.GetOrCreate("34561", testAddr(40000))
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), createdCount)
	assert.Equal(t, 1, r.Len())
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	r := NewSessionRegistry()

	s1, created := r.GetOrCreate("34561", testAddr(40000))
	require.True(t, created)

	s2, created := r.GetOrCreate("34561", testAddr(50000))
	assert.False(t, created)
	assert.Same(t, s1, s2)

	// The second call must not touch the existing session's address.
	assert.Equal(t, 40000, s2.Addr().Port)
}

func TestUpdateFix(t *testing.T) {
	r := NewSessionRegistry()
	s, _ := r.GetOrCreate("34561", testAddr(40000))

	gpsTime := time.Date(2017, 4, 27, 16, 23, 22, 0, time.UTC)
	r.UpdateFix("34561", gpsTime, 41.029386, 29.047473)

	rt := s.Runtime()
	assert.Equal(t, gpsTime, rt.GPSTime)
	assert.Equal(t, 41.029386, rt.Latitude)
	assert.Equal(t, 29.047473, rt.Longitude)
}

func TestUpdateFixUnknownDevice(t *testing.T) {
	r := NewSessionRegistry()
	r.UpdateFix("nope", time.Now(), 1, 2)
	assert.Equal(t, 0, r.Len())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	r := NewSessionRegistry()
	now := time.Now()

	stale, _ := r.GetOrCreate("stale", testAddr(40000))
	stale.Touch(nil, now.Add(-121*time.Second))

	fresh, _ := r.GetOrCreate("fresh", testAddr(40001))
	fresh.Touch(nil, now.Add(-119*time.Second))

	evicted := r.Sweep(now, 120*time.Second)

	assert.Equal(t, []string{"stale"}, evicted)
	assert.Equal(t, 1, r.Len())

	_, ok := r.Get("fresh")
	assert.True(t, ok)
	_, ok = r.Get("stale")
	assert.False(t, ok)
}

func TestSweepExactTimeoutNotEvicted(t *testing.T) {
	r := NewSessionRegistry()
	now := time.Now()

	s, _ := r.GetOrCreate("34561", testAddr(40000))
	s.Touch(nil, now.Add(-120*time.Second))

	evicted := r.Sweep(now, 120*time.Second)
	assert.Empty(t, evicted)
	assert.Equal(t, 1, r.Len())
}

func TestSnapshot(t *testing.T) {
	r := NewSessionRegistry()
	r.GetOrCreate("a", testAddr(1))
	r.GetOrCreate("b", testAddr(2))

	snap := r.Snapshot()
	assert.Len(t, snap, 2)
}
