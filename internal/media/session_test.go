package media

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okankilic/LisconVT-sub001/internal/models"
	"github.com/okankilic/LisconVT-sub001/internal/storage"
	"github.com/okankilic/LisconVT-sub001/pkg/mdvr"
)

// eventStore implements only what the media server calls.
type eventStore struct {
	storage.Store
}

func (eventStore) CreateEventLog(ctx context.Context, event *models.EventLog) error { return nil }

type capturedFrame struct {
	deviceID string
	frame    *mdvr.MediaFrame
}

type chanSink struct {
	frames chan capturedFrame
}

func (s *chanSink) StoreFrame(deviceID string, frame *mdvr.MediaFrame) {
	s.frames <- capturedFrame{deviceID: deviceID, frame: frame}
}

// negotiationFrame builds a complete text-protocol media negotiation frame.
func negotiationFrame() []byte {
	fields := []string{
		"", "205", mdvr.KeyMediaNegotiation, "34561", "",
		"170427 162322", "A",
		"+29", "2", "509033216",
		"+41", "1", "457910144",
		"4512", "9000",
		"123456", "65535",
		"25", "80", "22",
		"", "", "", "", "",
		"1.0", "MDVR", "78.186.62.229", "9101",
		"b2c3d4", "LIVE", "1", "0", "34 AB 1234",
	}
	payload := strings.Join(fields, ",")
	return []byte(fmt.Sprintf("%s%04d%s%c",
		mdvr.TextStartMarker, len(payload), payload, mdvr.TextEndMarker))
}

// readMediaFrames reads from the connection until n frames are decoded.
func readMediaFrames(t *testing.T, conn net.Conn, n int) []*mdvr.MediaFrame {
	t.Helper()

	dec := mdvr.NewMediaFrameDecoder()
	var frames []*mdvr.MediaFrame
	buf := make([]byte, 4096)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(frames) < n {
		read, err := conn.Read(buf)
		require.NoError(t, err)
		frames = append(frames, dec.Feed(buf[:read])...)
	}
	return frames
}

func TestSessionNegotiationHandshake(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	srv := &Server{
		store:    eventStore{},
		sink:     &chanSink{frames: make(chan capturedFrame, 4)},
		sessions: make(map[string]*Session),
	}

	sess := newSession(server, srv)
	go sess.run(context.Background())

	_, err := client.Write(negotiationFrame())
	require.NoError(t, err)

	frames := readMediaFrames(t, client, 2)

	feedback := frames[0]
	assert.Equal(t, mdvr.MediaTypeRegisterFeedback, feedback.Type)
	assert.Equal(t, uint16(1), feedback.Serial)
	assert.Equal(t, []byte{1, 0}, feedback.Payload)

	request := frames[1]
	assert.Equal(t, mdvr.MediaTypeFrameRequest, request.Type)
	assert.Equal(t, uint16(2), request.Serial)
	assert.Empty(t, request.Payload)

	_, ok := srv.Session("34561")
	assert.True(t, ok)
}

func TestSessionVideoFrameReachesSink(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sink := &chanSink{frames: make(chan capturedFrame, 4)}
	srv := &Server{
		store:    eventStore{},
		sink:     sink,
		sessions: make(map[string]*Session),
	}

	sess := newSession(server, srv)
	go sess.run(context.Background())

	_, err := client.Write(negotiationFrame())
	require.NoError(t, err)
	readMediaFrames(t, client, 2)

	video := mdvr.EncodeMediaFrame(&mdvr.MediaFrame{
		Type:    mdvr.MediaTypeRealTimeVideo,
		Serial:  9,
		Tick:    1000,
		Payload: []byte("h264 payload"),
	})
	_, err = client.Write(video)
	require.NoError(t, err)

	select {
	case got := <-sink.frames:
		assert.Equal(t, "34561", got.deviceID)
		assert.Equal(t, uint16(9), got.frame.Serial)
		assert.Equal(t, []byte("h264 payload"), got.frame.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("video frame never reached the sink")
	}
}

func TestSessionUnregistersOnClose(t *testing.T) {
	client, server := net.Pipe()

	srv := &Server{
		store:    eventStore{},
		sink:     &chanSink{frames: make(chan capturedFrame, 4)},
		sessions: make(map[string]*Session),
	}

	sess := newSession(server, srv)
	go sess.run(context.Background())

	_, err := client.Write(negotiationFrame())
	require.NoError(t, err)
	readMediaFrames(t, client, 2)

	client.Close()

	require.Eventually(t, func() bool {
		_, ok := srv.Session("34561")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionIgnoresNonNegotiationMessages(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	srv := &Server{
		store:    eventStore{},
		sink:     &chanSink{frames: make(chan capturedFrame, 4)},
		sessions: make(map[string]*Session),
	}

	sess := newSession(server, srv)
	go sess.run(context.Background())

	fields := []string{
		"", "205", mdvr.KeyGpsLog, "34561", "",
		"170427 162322", "A",
		"+29", "2", "509033216",
		"+41", "1", "457910144",
		"4512", "9000",
		"123456", "65535",
		"25", "80", "22",
		"", "", "", "", "",
	}
	payload := strings.Join(fields, ",")
	frame := fmt.Sprintf("%s%04d%s%c",
		mdvr.TextStartMarker, len(payload), payload, mdvr.TextEndMarker)

	_, err := client.Write([]byte(frame))
	require.NoError(t, err)

	// The session stays in text mode and registers nothing.
	time.Sleep(50 * time.Millisecond)
	_, ok := srv.Session("34561")
	assert.False(t, ok)
}
