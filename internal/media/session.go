package media

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/pkg/mdvr"
)

// Session is one media-control connection. It starts in text mode; a media
// negotiation message switches it permanently to binary mode.
type Session struct {
	conn   net.Conn
	server *Server

	deviceID string
	binary   bool
	serial   uint16

	textDec  *mdvr.TextFrameDecoder
	mediaDec *mdvr.MediaFrameDecoder
}

func newSession(conn net.Conn, server *Server) *Session {
	return &Session{
		conn:     conn,
		server:   server,
		textDec:  mdvr.NewTextFrameDecoder(),
		mediaDec: mdvr.NewMediaFrameDecoder(),
	}
}

// run reads the connection until it closes. Bytes feed the text decoder
// until negotiation completes, then the media decoder; the switch can happen
// mid-chunk.
func (s *Session) run(ctx context.Context) {
	defer func() {
		s.conn.Close()
		if s.deviceID != "" {
			s.server.unregister(s)
			log.Info().Str("device", s.deviceID).Msg("Media session closed")
		}
	}()

	buf := make([]byte, 64*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("Media connection read failed")
			}
			return
		}

		for _, b := range buf[:n] {
			if s.binary {
				s.feedBinary(b)
			} else {
				s.feedText(b)
			}
		}
	}
}

// feedText advances the text framer; a completed negotiation message flips
// the session to binary mode.
func (s *Session) feedText(b byte) {
	payload, ok := s.textDec.FeedByte(b)
	if !ok {
		return
	}

	msg, err := mdvr.DecodeMessage(payload)
	if err != nil {
		log.Debug().Err(err).Msg("Dropped undecodable media-control frame")
		return
	}
	if msg == nil || msg.Key != mdvr.KeyMediaNegotiation {
		return
	}

	s.deviceID = msg.DeviceID
	s.binary = true
	s.server.register(s)

	log.Info().
		Str("device", msg.DeviceID).
		Str("command", msg.Media.MediaCommand).
		Int("channel", msg.Media.Channel).
		Msg("Media session negotiated")

	// response=1, reason=0
	s.sendFrame(mdvr.MediaTypeRegisterFeedback, []byte{1, 0})
	s.sendFrame(mdvr.MediaTypeFrameRequest, nil)
}

// feedBinary advances the media framer; real-time video frames go to the
// sink, everything else is ignored.
func (s *Session) feedBinary(b byte) {
	frame, ok := s.mediaDec.FeedByte(b)
	if !ok {
		return
	}

	if frame.Type == mdvr.MediaTypeRealTimeVideo {
		s.server.sink.StoreFrame(s.deviceID, frame)
	}
}

// sendFrame writes one media-control frame with the connection's serial
// counter and a time-of-day tick.
func (s *Session) sendFrame(typ uint16, payload []byte) {
	s.serial++
	frame := &mdvr.MediaFrame{
		Type:    typ,
		Serial:  s.serial,
		Tick:    secondsSinceMidnight(time.Now()),
		Payload: payload,
	}

	if _, err := s.conn.Write(mdvr.EncodeMediaFrame(frame)); err != nil {
		log.Error().Err(err).Str("device", s.deviceID).Msg("Failed to send media frame")
	}
}

func secondsSinceMidnight(t time.Time) uint32 {
	h, m, sec := t.Clock()
	return uint32(h*3600 + m*60 + sec)
}
