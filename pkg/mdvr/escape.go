package mdvr

// Reserved payload bytes are transcoded to two-byte escape codes on the wire.
// The lead byte of every code is 0x0f, itself a reserved byte, so an encoded
// stream never contains a raw code pair that was not produced by Escape.
const escapeLead = byte(0x0f)

var escapeCodes = [...]struct {
	raw  byte
	code [2]byte
}{
	{0x0f, [2]byte{escapeLead, 0x00}},
	{FieldDelimiter, [2]byte{escapeLead, 0x01}},
	{TextEndMarker, [2]byte{escapeLead, 0x02}},
}

// Escape replaces each reserved byte with its two-byte escape code. All other
// bytes pass through unchanged.
func Escape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		escaped := false
		for _, e := range escapeCodes {
			if b == e.raw {
				out = append(out, e.code[0], e.code[1])
				escaped = true
				break
			}
		}
		if !escaped {
			out = append(out, b)
		}
	}
	return out
}

// Unescape reverses Escape. The scanner tests a two-byte window against the
// known codes; a match yields the original byte and consumes both, anything
// else copies a single byte through. A trailing byte that cannot form a pair
// is copied verbatim.
func Unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if i+1 < len(data) {
			matched := false
			for _, e := range escapeCodes {
				if data[i] == e.code[0] && data[i+1] == e.code[1] {
					out = append(out, e.raw)
					i += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		out = append(out, data[i])
		i++
	}
	return out
}
