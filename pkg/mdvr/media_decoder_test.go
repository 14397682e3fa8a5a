package mdvr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediaWire(f *MediaFrame) []byte {
	return EncodeMediaFrame(f)
}

func TestMediaDecoderByteAtATime(t *testing.T) {
	raw := mediaWire(&MediaFrame{
		Type:    MediaTypeRealTimeVideo,
		Serial:  42,
		Tick:    1000,
		Payload: []byte{0xde, 0xad, 0xbe, 0xef},
	})

	d := NewMediaFrameDecoder()
	var frames []*MediaFrame
	for _, b := range raw {
		frames = append(frames, d.Feed([]byte{b})...)
	}

	require.Len(t, frames, 1)
	assert.Equal(t, int32(12), frames[0].Length)
	assert.Equal(t, uint16(42), frames[0].Serial)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, frames[0].Payload)
}

func TestMediaDecoderMultipleFrames(t *testing.T) {
	raw := append(
		mediaWire(&MediaFrame{Type: MediaTypeRealTimeVideo, Serial: 1, Payload: []byte{1}}),
		mediaWire(&MediaFrame{Type: MediaTypeRealTimeVideo, Serial: 2, Payload: []byte{2}})...)

	d := NewMediaFrameDecoder()
	frames := d.Feed(raw)

	require.Len(t, frames, 2)
	assert.Equal(t, uint16(1), frames[0].Serial)
	assert.Equal(t, uint16(2), frames[1].Serial)
}

func TestMediaDecoderResyncAfterGarbage(t *testing.T) {
	raw := append([]byte{0x00, 0x01, 0x02},
		mediaWire(&MediaFrame{Type: MediaTypeFrameRequest, Serial: 9})...)

	d := NewMediaFrameDecoder()
	frames := d.Feed(raw)

	require.Len(t, frames, 1)
	assert.Equal(t, MediaTypeFrameRequest, frames[0].Type)
	assert.Empty(t, frames[0].Payload)
}

func TestMediaDecoderBadEndMarkerDropsFrame(t *testing.T) {
	raw := mediaWire(&MediaFrame{Type: MediaTypeRealTimeVideo, Serial: 3, Payload: []byte{7}})
	raw[len(raw)-1] = 'X'

	d := NewMediaFrameDecoder()
	assert.Empty(t, d.Feed(raw))

	frames := d.Feed(mediaWire(&MediaFrame{Type: MediaTypeRealTimeVideo, Serial: 4}))
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(4), frames[0].Serial)
}

func TestMediaDecoderEmptyPayload(t *testing.T) {
	d := NewMediaFrameDecoder()
	frames := d.Feed(mediaWire(&MediaFrame{Type: MediaTypeRegisterFeedback, Serial: 5}))

	require.Len(t, frames, 1)
	assert.Equal(t, int32(MediaHeaderSize), frames[0].Length)
	assert.Empty(t, frames[0].Payload)
}
