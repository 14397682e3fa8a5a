// Package mdvr implements the MDVR wire protocols: the delimiter-based,
// escape-coded text protocol carried over UDP and the length-framed binary
// media-control protocol carried over a stream connection.
package mdvr

// Text protocol framing.
var (
	// TextStartMarker opens every text-protocol frame.
	TextStartMarker = []byte("$$dc")
)

// TextEndMarker closes every text-protocol frame.
const TextEndMarker = byte('#')

// FieldDelimiter separates payload fields.
const FieldDelimiter = byte(',')

// Media protocol framing.
var (
	// MediaStartMarker opens every media-control frame.
	MediaStartMarker = []byte("$$$$$$dc")
	// MediaEndMarker closes every media-control frame.
	MediaEndMarker = []byte("####")
)

// MediaHeaderSize is the number of header bytes (type + serial + tick)
// counted into the declared frame length.
const MediaHeaderSize = 8

// Media frame type codes.
const (
	MediaTypeRealTimeVideo    uint16 = 0x0001
	MediaTypeRegisterFeedback uint16 = 0x0085
	MediaTypeFrameRequest     uint16 = 0x0086
)

// Message keys sent by devices.
const (
	KeyRegistration     = "V100"
	KeyGpsLog           = "V101"
	KeyAlarmStart       = "V201"
	KeyAlarmEnd         = "V202"
	KeyMediaNegotiation = "V301"
)

// Message keys sent by the gateway.
const (
	KeyAck          = "C100"
	KeyHeartbeat    = "C501"
	KeyVideoControl = "C508"
	KeyConfigPush   = "C7212"
)

// TimeLayout is the wire format of message and alarm timestamps.
const TimeLayout = "060102 150405"

// SequenceModulus bounds the outgoing sequence counter.
const SequenceModulus = 10000
