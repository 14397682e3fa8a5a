// Package gateway implements the UDP protocol engine: datagram decode,
// session bookkeeping, business reactions, sequenced replies and the
// heartbeat/eviction sweep.
package gateway

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/internal/config"
	"github.com/okankilic/LisconVT-sub001/internal/events"
	"github.com/okankilic/LisconVT-sub001/internal/models"
	"github.com/okankilic/LisconVT-sub001/internal/storage"
	"github.com/okankilic/LisconVT-sub001/pkg/mdvr"
)

type outbound struct {
	addr *net.UDPAddr
	data []byte
}

// Server handles the text protocol over UDP
type Server struct {
	conn     *net.UDPConn
	store    storage.Store
	notifier events.Notifier
	cfg      *config.GatewayConfig

	sessions *SessionRegistry
	alarms   *AlarmTracker
	enc      *mdvr.Encoder
	sendQ    chan outbound
}

// NewServer creates a UDP gateway server bound to the configured address
func NewServer(cfg *config.GatewayConfig, store storage.Store, notifier events.Notifier) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.UDPBind)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	return &Server{
		conn:     conn,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		sessions: NewSessionRegistry(),
		alarms:   NewAlarmTracker(),
		enc:      mdvr.NewEncoder(),
		sendQ:    make(chan outbound, cfg.SendQueueSize),
	}, nil
}

// Sessions exposes the session registry to the API layer.
func (s *Server) Sessions() *SessionRegistry { return s.sessions }

// Alarms exposes the alarm tracker to the API layer.
func (s *Server) Alarms() *AlarmTracker { return s.alarms }

// Start runs the receive loop, the send workers and the heartbeat sweep
// until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	log.Info().Str("addr", s.conn.LocalAddr().String()).Msg("MDVR gateway UDP server started")

	for i := 0; i < s.cfg.SendWorkers; i++ {
		go s.sendWorker(ctx)
	}
	go s.heartbeatLoop(ctx)

	buf := make([]byte, 65507)
	for {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		default:
			n, addr, err := s.conn.ReadFromUDP(buf)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Msg("Failed to read UDP datagram")
				continue
			}

			data := make([]byte, n)
			copy(data, buf[:n])
			go s.handleDatagram(data, addr)
		}
	}
}

// handleDatagram frames a datagram and processes every complete frame it
// carries. UDP preserves datagram boundaries, so each datagram gets a fresh
// framer.
func (s *Server) handleDatagram(data []byte, addr *net.UDPAddr) {
	dec := mdvr.NewTextFrameDecoder()
	for _, payload := range dec.Feed(data) {
		s.handleFrame(payload, addr)
	}
}

// handleFrame runs the per-message pipeline: decode, session update,
// business reaction, response. Nothing here is fatal to the receive loop.
func (s *Server) handleFrame(payload []byte, addr *net.UDPAddr) {
	msg, err := mdvr.DecodeMessage(payload)
	if err != nil {
		log.Debug().Err(err).Str("addr", addr.String()).Msg("Dropped undecodable frame")
		return
	}
	if msg == nil {
		// Unrecognized message key, not an error.
		return
	}

	ctx := context.Background()
	now := time.Now()

	sess, created := s.sessions.GetOrCreate(msg.DeviceID, addr)
	if created {
		log.Info().Str("device", msg.DeviceID).Str("addr", addr.String()).Msg("Device connected")
		s.notifier.Connected(msg.DeviceID)
		s.logEvent(ctx, msg.DeviceID, models.EventTypeConnected, "Device session created", models.Variables{
			"address": addr.String(),
		})
	}
	sess.Touch(addr, now)
	s.sessions.UpdateFix(msg.DeviceID, msg.Time, msg.Location.Latitude, msg.Location.Longitude)

	var response []string
	persistOK := true

	switch msg.Key {
	case mdvr.KeyRegistration:
		response = s.handleRegistration(ctx, msg, &persistOK)
	case mdvr.KeyGpsLog:
		s.handleGpsLog(ctx, msg, &persistOK)
	case mdvr.KeyAlarmStart:
		response = s.handleAlarmStart(ctx, msg, &persistOK)
	case mdvr.KeyAlarmEnd:
		response = s.handleAlarmEnd(ctx, msg, &persistOK)
	}

	if err := s.store.UpdateRuntime(ctx, sess.Runtime()); err != nil {
		log.Error().Err(err).Str("device", msg.DeviceID).Msg("Failed to persist runtime")
		persistOK = false
	}
	s.notifier.RuntimeUpdated(sess.Runtime())

	// A persistence failure drops the response; the device retries.
	if response != nil && persistOK {
		s.send(addr, s.enc.Encode(response))
	}
}

// handleRegistration registers first-time devices and acknowledges the
// request
func (s *Server) handleRegistration(ctx context.Context, msg *mdvr.Message, persistOK *bool) []string {
	_, err := s.store.GetDevice(ctx, msg.DeviceID)
	if err == storage.ErrNotFound {
		now := time.Now()
		device := &models.Device{
			DeviceID:    msg.DeviceID,
			Name:        "MDVR " + msg.DeviceID,
			DeviceType:  msg.Registration.DeviceType,
			ProtocolVer: msg.Registration.ProtocolVersion,
			FirstSeenAt: &now,
			LastSeenAt:  &now,
		}
		if err := s.store.CreateDevice(ctx, device); err != nil {
			log.Error().Err(err).Str("device", msg.DeviceID).Msg("Failed to register device")
			*persistOK = false
		} else {
			log.Info().Str("device", msg.DeviceID).Msg("Device auto-registered")
			s.logEvent(ctx, msg.DeviceID, models.EventTypeRegistration, "Device registered", models.Variables{
				"deviceType":      msg.Registration.DeviceType,
				"protocolVersion": msg.Registration.ProtocolVersion,
			})
		}
	} else if err != nil {
		log.Error().Err(err).Str("device", msg.DeviceID).Msg("Failed to look up device")
		*persistOK = false
	}

	return s.ackFields(msg, "1")
}

// handleGpsLog appends the fix to the log store; GPS reports are not
// acknowledged
func (s *Server) handleGpsLog(ctx context.Context, msg *mdvr.Message, persistOK *bool) {
	rec := &models.GPSLog{
		DeviceID:    msg.DeviceID,
		GPSTime:     msg.Time,
		Valid:       msg.Location.Valid,
		Latitude:    msg.Location.Latitude,
		Longitude:   msg.Location.Longitude,
		Speed:       msg.Location.Speed,
		Course:      msg.Location.Course,
		Status:      int64(msg.Location.Status),
		Mask:        int64(msg.Location.Mask),
		DeviceTemp:  msg.Location.DeviceTemp,
		EngineTemp:  msg.Location.EngineTemp,
		VehicleTemp: msg.Location.VehicleTemp,
	}
	if err := s.store.AppendGPSLog(ctx, rec); err != nil {
		log.Error().Err(err).Str("device", msg.DeviceID).Msg("Failed to append GPS log")
		*persistOK = false
	}
}

// handleAlarmStart opens the alarm and acknowledges the report
func (s *Server) handleAlarmStart(ctx context.Context, msg *mdvr.Message, persistOK *bool) []string {
	alarm := msg.Alarm
	if s.alarms.OpenIfAbsent(alarm.ID, msg.DeviceID, alarm.Name, alarm.Source, alarm.Time) {
		log.Info().
			Str("device", msg.DeviceID).
			Str("alarm", alarm.ID).
			Str("name", alarm.Name).
			Msg("Alarm opened")

		rec, _ := s.alarms.Get(alarm.ID)
		if err := s.store.SaveAlarm(ctx, rec); err != nil {
			log.Error().Err(err).Str("alarm", alarm.ID).Msg("Failed to persist alarm")
			*persistOK = false
		}
		s.logEvent(ctx, msg.DeviceID, models.EventTypeAlarmOpened, "Alarm "+alarm.Name+" opened", models.Variables{
			"alarmId": alarm.ID,
			"source":  alarm.Source,
		})
	}

	return s.ackFields(msg, alarm.ID)
}

// handleAlarmEnd closes the alarm and acknowledges the report
func (s *Server) handleAlarmEnd(ctx context.Context, msg *mdvr.Message, persistOK *bool) []string {
	alarm := msg.Alarm
	if s.alarms.Close(alarm.ID, alarm.Time) {
		log.Info().Str("device", msg.DeviceID).Str("alarm", alarm.ID).Msg("Alarm closed")

		if err := s.store.CloseAlarm(ctx, alarm.ID, alarm.Time); err != nil {
			log.Error().Err(err).Str("alarm", alarm.ID).Msg("Failed to close persisted alarm")
			*persistOK = false
		}
		s.logEvent(ctx, msg.DeviceID, models.EventTypeAlarmClosed, "Alarm closed", models.Variables{
			"alarmId": alarm.ID,
		})
	}

	return s.ackFields(msg, alarm.ID)
}

// ackFields builds the general acknowledgment reply for a device report.
func (s *Server) ackFields(msg *mdvr.Message, tail string) []string {
	return []string{
		mdvr.KeyAck,
		msg.DeviceID,
		"",
		time.Now().UTC().Format(mdvr.TimeLayout),
		msg.Key,
		msg.Time.Format(mdvr.TimeLayout),
		"Auto",
		tail,
	}
}

// heartbeatLoop periodically evicts idle sessions and pings live ones
func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.HeartbeatInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndPing(time.Now())
		}
	}
}

// sweepAndPing runs one heartbeat pass: evict, notify, ping.
func (s *Server) sweepAndPing(now time.Time) {
	for _, deviceID := range s.sessions.Sweep(now, time.Duration(s.cfg.SessionTimeout)) {
		log.Info().Str("device", deviceID).Msg("Device session timed out")
		s.notifier.Disconnected(deviceID)
		s.logEvent(context.Background(), deviceID, models.EventTypeDisconnected, "Device session evicted", nil)
	}

	nowField := now.UTC().Format(mdvr.TimeLayout)
	for _, sess := range s.sessions.Snapshot() {
		addr := sess.Addr()
		if addr == nil {
			continue
		}
		s.send(addr, s.enc.Encode([]string{mdvr.KeyHeartbeat, sess.DeviceID, "", nowField}))
	}
}

// send enqueues an outgoing frame, fire and forget. A full queue drops the
// frame rather than blocking the handler.
func (s *Server) send(addr *net.UDPAddr, data []byte) {
	if len(data) == 0 {
		return
	}
	select {
	case s.sendQ <- outbound{addr: addr, data: data}:
	default:
		log.Warn().Str("addr", addr.String()).Msg("Send queue full, frame dropped")
	}
}

func (s *Server) sendWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ob := <-s.sendQ:
			if _, err := s.conn.WriteToUDP(ob.data, ob.addr); err != nil {
				log.Error().Err(err).Str("addr", ob.addr.String()).Msg("Failed to send frame")
			}
		}
	}
}

// logEvent writes an event log entry; failures are logged and swallowed
func (s *Server) logEvent(ctx context.Context, deviceID string, typ models.EventType, desc string, details models.Variables) {
	event := &models.EventLog{
		DeviceID:    &deviceID,
		Type:        typ,
		Level:       models.EventLevelInfo,
		Description: desc,
		Details:     details,
	}
	if err := s.store.CreateEventLog(ctx, event); err != nil {
		log.Error().Err(err).Str("device", deviceID).Msg("Failed to create event log")
	}
}
