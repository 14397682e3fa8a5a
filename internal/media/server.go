// Package media implements the TCP media-control server: negotiation
// handshake, binary frame decoding and hand-off of video frames to the
// storage sink.
package media

import (
	"context"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/internal/config"
	"github.com/okankilic/LisconVT-sub001/internal/models"
	"github.com/okankilic/LisconVT-sub001/internal/storage"
)

// Server accepts media-control connections and runs one session per
// connection.
type Server struct {
	listener net.Listener
	store    storage.Store
	sink     VideoSink

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewServer creates a media server bound to the configured address
func NewServer(cfg *config.MediaConfig, store storage.Store, sink VideoSink) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.TCPBind)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		store:    store,
		sink:     sink,
		sessions: make(map[string]*Session),
	}, nil
}

// Start runs the accept loop until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	log.Info().Str("addr", s.listener.Addr().String()).Msg("MDVR media TCP server started")

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to accept media connection")
			continue
		}

		sess := newSession(conn, s)
		go sess.run(ctx)
	}
}

// Session returns the negotiated media session for a device, if any.
func (s *Server) Session(deviceID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[deviceID]
	return sess, ok
}

// register binds a negotiated session to its device identifier. A new
// connection for the same device replaces the previous one.
func (s *Server) register(sess *Session) {
	s.mu.Lock()
	old := s.sessions[sess.deviceID]
	s.sessions[sess.deviceID] = sess
	s.mu.Unlock()

	if old != nil && old != sess {
		old.conn.Close()
	}

	s.logSessionEvent(sess.deviceID, "Media session negotiated")
}

// unregister removes a session if it is still the registered one.
func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	if s.sessions[sess.deviceID] == sess {
		delete(s.sessions, sess.deviceID)
	}
	s.mu.Unlock()
}

func (s *Server) logSessionEvent(deviceID, desc string) {
	event := &models.EventLog{
		DeviceID:    &deviceID,
		Type:        models.EventTypeMediaSession,
		Level:       models.EventLevelInfo,
		Description: desc,
	}
	if err := s.store.CreateEventLog(context.Background(), event); err != nil {
		log.Error().Err(err).Str("device", deviceID).Msg("Failed to create event log")
	}
}
