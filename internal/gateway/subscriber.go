package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// CommandSubscriber bridges the NATS command plane to the UDP gateway.
// External services publish to mdvr.command.<deviceID>.<command> and the
// subscriber dispatches to the matching gateway operation.
type CommandSubscriber struct {
	nc   *nats.Conn
	srv  *Server
	subs []*nats.Subscription
}

// NewCommandSubscriber creates a command subscriber
func NewCommandSubscriber(nc *nats.Conn, srv *Server) *CommandSubscriber {
	return &CommandSubscriber{
		nc:   nc,
		srv:  srv,
		subs: make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until the context is cancelled
func (s *CommandSubscriber) Start(ctx context.Context) error {
	sub1, err := s.nc.Subscribe("mdvr.command.*.config", s.handleConfigPush)
	if err != nil {
		return fmt.Errorf("subscribe config command: %w", err)
	}
	s.subs = append(s.subs, sub1)

	sub2, err := s.nc.Subscribe("mdvr.command.*.video", s.handleVideoControl)
	if err != nil {
		return fmt.Errorf("subscribe video command: %w", err)
	}
	s.subs = append(s.subs, sub2)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("Command subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// deviceIDFromSubject extracts the device identifier token from
// mdvr.command.<deviceID>.<command>.
func deviceIDFromSubject(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 {
		return "", false
	}
	return parts[2], true
}

// handleConfigPush handles configuration push requests
func (s *CommandSubscriber) handleConfigPush(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received config push request")

	deviceID, ok := deviceIDFromSubject(msg.Subject)
	if !ok {
		log.Error().Str("subject", msg.Subject).Msg("Malformed command subject")
		return
	}

	var req struct {
		Params []string `json:"params"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal config push request")
		return
	}

	s.srv.PushConfig(deviceID, req.Params)
}

// handleVideoControl handles video start/stop requests
func (s *CommandSubscriber) handleVideoControl(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received video control request")

	deviceID, ok := deviceIDFromSubject(msg.Subject)
	if !ok {
		log.Error().Str("subject", msg.Subject).Msg("Malformed command subject")
		return
	}

	var req struct {
		Start   bool `json:"start"`
		Channel int  `json:"channel"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal video control request")
		return
	}

	s.srv.VideoControl(deviceID, req.Start, req.Channel)
}
