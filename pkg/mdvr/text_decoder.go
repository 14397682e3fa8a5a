package mdvr

import (
	"bytes"
	"strconv"
)

type textState int

const (
	textAwaitStart textState = iota
	textAwaitLength
	textAwaitData
	textAwaitEnd
)

// TextFrameDecoder extracts complete text-protocol frames from an incoming
// byte stream. One decoder runs per connection; it tolerates partial and
// multi-frame chunks across repeated feeds.
type TextFrameDecoder struct {
	state  textState
	stage  []byte
	length int
	data   []byte
}

// NewTextFrameDecoder creates a decoder waiting for a start marker.
func NewTextFrameDecoder() *TextFrameDecoder {
	return &TextFrameDecoder{
		stage: make([]byte, 0, len(TextStartMarker)),
	}
}

// Feed consumes a chunk of raw bytes and returns the data blocks of all
// frames the chunk completes.
func (d *TextFrameDecoder) Feed(p []byte) [][]byte {
	var frames [][]byte
	for _, b := range p {
		if data, ok := d.FeedByte(b); ok {
			frames = append(frames, data)
		}
	}
	return frames
}

// FeedByte advances the state machine by a single byte. It returns a
// completed frame data block when the byte closes a frame.
func (d *TextFrameDecoder) FeedByte(b byte) ([]byte, bool) {
	switch d.state {
	case textAwaitStart:
		d.stage = append(d.stage, b)
		if len(d.stage) < len(TextStartMarker) {
			return nil, false
		}
		if bytes.Equal(d.stage, TextStartMarker) {
			d.stage = d.stage[:0]
			d.state = textAwaitLength
			return nil, false
		}
		// Resynchronize one byte at a time so a start marker straddling
		// the window is not lost.
		copy(d.stage, d.stage[1:])
		d.stage = d.stage[:len(TextStartMarker)-1]

	case textAwaitLength:
		d.stage = append(d.stage, b)
		if len(d.stage) < 4 {
			return nil, false
		}
		n, err := strconv.Atoi(string(d.stage))
		d.stage = d.stage[:0]
		if err != nil || n < 0 {
			d.state = textAwaitStart
			return nil, false
		}
		d.length = n
		d.data = make([]byte, 0, n)
		if n == 0 {
			d.state = textAwaitEnd
		} else {
			d.state = textAwaitData
		}

	case textAwaitData:
		d.data = append(d.data, b)
		if len(d.data) == d.length {
			d.state = textAwaitEnd
		}

	case textAwaitEnd:
		data := d.data
		d.data = nil
		d.state = textAwaitStart
		if b == TextEndMarker {
			return data, true
		}
	}
	return nil, false
}
