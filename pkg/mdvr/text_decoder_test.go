package mdvr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextDecoderSingleFrame(t *testing.T) {
	d := NewTextFrameDecoder()

	frames := d.Feed([]byte("$$dc0010,205,V101,#"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte(",205,V101,"), frames[0])
}

func TestTextDecoderByteAtATime(t *testing.T) {
	d := NewTextFrameDecoder()
	raw := []byte("$$dc0010,205,V101,#")

	var frames [][]byte
	for _, b := range raw {
		frames = append(frames, d.Feed([]byte{b})...)
	}
	require.Len(t, frames, 1)
	assert.Equal(t, []byte(",205,V101,"), frames[0])
}

func TestTextDecoderMultipleFramesInOneChunk(t *testing.T) {
	d := NewTextFrameDecoder()

	frames := d.Feed([]byte("$$dc0005,abcd#$$dc0005,efgh#"))
	require.Len(t, frames, 2)
	assert.Equal(t, []byte(",abcd"), frames[0])
	assert.Equal(t, []byte(",efgh"), frames[1])
}

func TestTextDecoderResyncAfterGarbage(t *testing.T) {
	d := NewTextFrameDecoder()

	// Garbage of a length that is not a multiple of the marker width must
	// not desynchronize the decoder.
	frames := d.Feed([]byte("xx$$dc0005,abcd#"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte(",abcd"), frames[0])
}

func TestTextDecoderBadEndMarkerDropsFrame(t *testing.T) {
	d := NewTextFrameDecoder()

	frames := d.Feed([]byte("$$dc0005,abcdX"))
	assert.Empty(t, frames)

	// The decoder recovers for the next frame.
	frames = d.Feed([]byte("$$dc0005,efgh#"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte(",efgh"), frames[0])
}

func TestTextDecoderZeroLength(t *testing.T) {
	d := NewTextFrameDecoder()

	frames := d.Feed([]byte("$$dc0000#"))
	require.Len(t, frames, 1)
	assert.Empty(t, frames[0])
}

func TestTextDecoderNonNumericLength(t *testing.T) {
	d := NewTextFrameDecoder()

	assert.Empty(t, d.Feed([]byte("$$dcXXXX,abcd#")))

	frames := d.Feed([]byte("$$dc0005,abcd#"))
	require.Len(t, frames, 1)
}
