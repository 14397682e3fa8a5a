package gateway

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/pkg/mdvr"
)

// PushConfig sends a configuration parameter block to a live device. Returns
// false when the device has no session; the command is not queued for later.
func (s *Server) PushConfig(deviceID string, params []string) bool {
	sess, ok := s.sessions.Get(deviceID)
	if !ok {
		log.Warn().Str("device", deviceID).Msg("Config push for offline device dropped")
		return false
	}

	fields := make([]string, 0, 4+len(params))
	fields = append(fields,
		mdvr.KeyConfigPush,
		deviceID,
		"",
		time.Now().UTC().Format(mdvr.TimeLayout),
	)
	fields = append(fields, params...)

	s.send(sess.Addr(), s.enc.Encode(fields))
	log.Info().Str("device", deviceID).Int("params", len(params)).Msg("Config pushed")
	return true
}

// VideoControl asks a live device to start or stop streaming a channel.
// Returns false when the device has no session.
func (s *Server) VideoControl(deviceID string, start bool, channel int) bool {
	sess, ok := s.sessions.Get(deviceID)
	if !ok {
		log.Warn().Str("device", deviceID).Msg("Video control for offline device dropped")
		return false
	}

	action := "0"
	if start {
		action = "1"
	}
	fields := []string{
		mdvr.KeyVideoControl,
		deviceID,
		"",
		time.Now().UTC().Format(mdvr.TimeLayout),
		action,
		strconv.Itoa(channel),
	}

	s.send(sess.Addr(), s.enc.Encode(fields))
	log.Info().
		Str("device", deviceID).
		Bool("start", start).
		Int("channel", channel).
		Msg("Video control sent")
	return true
}
