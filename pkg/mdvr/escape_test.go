package mdvr

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeReservedBytes(t *testing.T) {
	in := []byte{'a', ',', 'b', '#', 'c', 0x0f, 'd'}
	out := Escape(in)

	assert.NotContains(t, out, byte(','))
	assert.NotContains(t, out, byte('#'))
	assert.Equal(t, in, Unescape(out))
}

func TestEscapePassThrough(t *testing.T) {
	in := []byte("plain text without reserved bytes")
	assert.Equal(t, in, Escape(in))
	assert.Equal(t, in, Unescape(in))
}

func TestEscapeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		in := make([]byte, rng.Intn(128))
		rng.Read(in)

		got := Unescape(Escape(in))
		assert.Equal(t, in, got, "round trip failed for %x", in)
	}
}

func TestEscapeRoundTripEmpty(t *testing.T) {
	assert.Empty(t, Unescape(Escape(nil)))
}

func TestUnescapeTrailingByte(t *testing.T) {
	// A final byte that cannot form a pair is copied verbatim.
	assert.Equal(t, []byte{'a', 'b', 0x0f}, Unescape([]byte{'a', 'b', 0x0f}))
}
