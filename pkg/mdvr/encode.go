package mdvr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Encoder frames outgoing field lists for the text protocol. The sequence
// counter is shared by every encode call across the gateway instance; values
// are monotonically increasing modulo 10000 and never reused for two
// different frames.
type Encoder struct {
	seq atomic.Uint32
}

// NewEncoder creates an encoder whose first sequence number is 1.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode prepends the next sequence number to the field list, joins the
// fields with the delimiter and wraps them as a complete frame. An empty
// field list encodes to nil: a no-op send.
func (e *Encoder) Encode(fields []string) []byte {
	if len(fields) == 0 {
		return nil
	}

	all := make([]string, 0, len(fields)+1)
	all = append(all, strconv.FormatUint(uint64(e.next()), 10))
	all = append(all, fields...)
	payload := strings.Join(all, string(FieldDelimiter))

	// The declared length covers the delimiter between it and the payload.
	var buf bytes.Buffer
	buf.Write(TextStartMarker)
	fmt.Fprintf(&buf, "%04d", len(payload)+1)
	buf.WriteByte(FieldDelimiter)
	buf.WriteString(payload)
	buf.WriteByte(TextEndMarker)
	return buf.Bytes()
}

func (e *Encoder) next() uint32 {
	return e.seq.Add(1) % SequenceModulus
}

// EncodeMediaFrame wraps a media-control frame for the wire. The declared
// length covers the type, serial and tick fields plus the payload.
func EncodeMediaFrame(f *MediaFrame) []byte {
	length := int32(len(f.Payload) + MediaHeaderSize)

	buf := make([]byte, 0, len(MediaStartMarker)+4+MediaHeaderSize+len(f.Payload)+len(MediaEndMarker))
	buf = append(buf, MediaStartMarker...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(length))
	buf = binary.LittleEndian.AppendUint16(buf, f.Type)
	buf = binary.LittleEndian.AppendUint16(buf, f.Serial)
	buf = binary.LittleEndian.AppendUint32(buf, f.Tick)
	buf = append(buf, f.Payload...)
	buf = append(buf, MediaEndMarker...)
	return buf
}
