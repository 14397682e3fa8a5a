package media

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/pkg/mdvr"
)

// VideoSink receives decoded real-time video frames. Implementations must
// not block the session's read loop.
type VideoSink interface {
	StoreFrame(deviceID string, frame *mdvr.MediaFrame)
}

// NopVideoSink discards video frames. Used when no NATS connection is
// configured.
type NopVideoSink struct{}

func (NopVideoSink) StoreFrame(deviceID string, frame *mdvr.MediaFrame) {}

// NATSVideoSink publishes video frames to per-device NATS subjects for
// downstream recording and live viewing.
type NATSVideoSink struct {
	nc *nats.Conn
}

// NewNATSVideoSink creates a NATS-backed video sink.
func NewNATSVideoSink(nc *nats.Conn) *NATSVideoSink {
	return &NATSVideoSink{nc: nc}
}

// StoreFrame publishes one video frame
func (s *NATSVideoSink) StoreFrame(deviceID string, frame *mdvr.MediaFrame) {
	msg := map[string]interface{}{
		"deviceId":  deviceID,
		"serial":    frame.Serial,
		"tick":      frame.Tick,
		"data":      frame.Payload,
		"timestamp": time.Now().Unix(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("device", deviceID).Msg("Failed to marshal video frame")
		return
	}

	subject := fmt.Sprintf("mdvr.media.%s.video", deviceID)
	if err := s.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("device", deviceID).Msg("Failed to publish video frame")
	}
}
