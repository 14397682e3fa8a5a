// Package events fans session lifecycle notifications out to external
// observers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/internal/models"
)

// Notifier receives gateway notifications. Implementations must not block
// the calling handler.
type Notifier interface {
	Connected(deviceID string)
	Disconnected(deviceID string)
	RuntimeUpdated(rt *models.DeviceRuntime)
}

// NopNotifier discards all notifications. Used when no NATS connection is
// configured.
type NopNotifier struct{}

func (NopNotifier) Connected(deviceID string)               {}
func (NopNotifier) Disconnected(deviceID string)            {}
func (NopNotifier) RuntimeUpdated(rt *models.DeviceRuntime) {}

// NATSNotifier publishes notifications as JSON to per-device NATS subjects.
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier creates a NATS-backed notifier.
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

// Connected publishes a connect notification
func (n *NATSNotifier) Connected(deviceID string) {
	n.publish(fmt.Sprintf("mdvr.device.%s.connected", deviceID), map[string]interface{}{
		"deviceId":  deviceID,
		"timestamp": time.Now().Unix(),
	})
}

// Disconnected publishes a disconnect notification
func (n *NATSNotifier) Disconnected(deviceID string) {
	n.publish(fmt.Sprintf("mdvr.device.%s.disconnected", deviceID), map[string]interface{}{
		"deviceId":  deviceID,
		"timestamp": time.Now().Unix(),
	})
}

// RuntimeUpdated publishes the updated runtime snapshot
func (n *NATSNotifier) RuntimeUpdated(rt *models.DeviceRuntime) {
	n.publish(fmt.Sprintf("mdvr.device.%s.runtime", rt.DeviceID), map[string]interface{}{
		"deviceId":  rt.DeviceID,
		"address":   rt.Address,
		"gpsTime":   rt.GPSTime,
		"latitude":  rt.Latitude,
		"longitude": rt.Longitude,
		"timestamp": time.Now().Unix(),
	})
}

func (n *NATSNotifier) publish(subject string, msg map[string]interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to marshal notification")
		return
	}

	if err := n.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish notification")
	}
}
