package mdvr

import (
	"bytes"
	"encoding/binary"
)

// MediaFrame is one complete unit of the binary media-control protocol.
type MediaFrame struct {
	Length  int32
	Type    uint16
	Serial  uint16
	Tick    uint32
	Payload []byte
}

type mediaState int

const (
	mediaAwaitStart mediaState = iota
	mediaAwaitLength
	mediaAwaitType
	mediaAwaitSerial
	mediaAwaitTick
	mediaAwaitData
	mediaAwaitEnd
)

// MediaFrameDecoder extracts complete media-control frames from an incoming
// byte stream. Same state-machine shape as the text decoder, binary field
// widths. Integers are little-endian.
type MediaFrameDecoder struct {
	state mediaState
	stage []byte
	frame MediaFrame
	need  int
}

// NewMediaFrameDecoder creates a decoder waiting for a start marker.
func NewMediaFrameDecoder() *MediaFrameDecoder {
	return &MediaFrameDecoder{
		stage: make([]byte, 0, len(MediaStartMarker)),
	}
}

// Feed consumes a chunk of raw bytes and returns all frames it completes.
func (d *MediaFrameDecoder) Feed(p []byte) []*MediaFrame {
	var frames []*MediaFrame
	for _, b := range p {
		if f, ok := d.FeedByte(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// FeedByte advances the state machine by a single byte. It returns a
// completed frame when the byte closes one.
func (d *MediaFrameDecoder) FeedByte(b byte) (*MediaFrame, bool) {
	switch d.state {
	case mediaAwaitStart:
		d.stage = append(d.stage, b)
		if len(d.stage) < len(MediaStartMarker) {
			return nil, false
		}
		if bytes.Equal(d.stage, MediaStartMarker) {
			d.reset(mediaAwaitLength)
			return nil, false
		}
		copy(d.stage, d.stage[1:])
		d.stage = d.stage[:len(MediaStartMarker)-1]

	case mediaAwaitLength:
		d.stage = append(d.stage, b)
		if len(d.stage) < 4 {
			return nil, false
		}
		d.frame.Length = int32(binary.LittleEndian.Uint32(d.stage))
		d.need = int(d.frame.Length) - MediaHeaderSize
		if d.need < 0 {
			d.reset(mediaAwaitStart)
			return nil, false
		}
		d.reset(mediaAwaitType)

	case mediaAwaitType:
		d.stage = append(d.stage, b)
		if len(d.stage) < 2 {
			return nil, false
		}
		d.frame.Type = binary.LittleEndian.Uint16(d.stage)
		d.reset(mediaAwaitSerial)

	case mediaAwaitSerial:
		d.stage = append(d.stage, b)
		if len(d.stage) < 2 {
			return nil, false
		}
		d.frame.Serial = binary.LittleEndian.Uint16(d.stage)
		d.reset(mediaAwaitTick)

	case mediaAwaitTick:
		d.stage = append(d.stage, b)
		if len(d.stage) < 4 {
			return nil, false
		}
		d.frame.Tick = binary.LittleEndian.Uint32(d.stage)
		d.frame.Payload = make([]byte, 0, d.need)
		if d.need == 0 {
			d.reset(mediaAwaitEnd)
		} else {
			d.reset(mediaAwaitData)
		}

	case mediaAwaitData:
		d.frame.Payload = append(d.frame.Payload, b)
		if len(d.frame.Payload) == d.need {
			d.reset(mediaAwaitEnd)
		}

	case mediaAwaitEnd:
		d.stage = append(d.stage, b)
		if len(d.stage) < len(MediaEndMarker) {
			return nil, false
		}
		ok := bytes.Equal(d.stage, MediaEndMarker)
		frame := d.frame
		d.frame = MediaFrame{}
		d.reset(mediaAwaitStart)
		if ok {
			return &frame, true
		}
	}
	return nil, false
}

func (d *MediaFrameDecoder) reset(next mediaState) {
	d.stage = d.stage[:0]
	d.state = next
}
