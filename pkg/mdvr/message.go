package mdvr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Positional field layout shared by all messages. The data block of a frame
// starts with the field delimiter, so index 0 is always empty.
const (
	fieldKey       = 2
	fieldDeviceID  = 3
	fieldTime      = 5
	fieldValidity  = 6
	fieldLonDeg    = 7
	fieldLatDeg    = 10
	fieldSpeed     = 13
	fieldCourse    = 14
	fieldStatus    = 15
	fieldMask      = 16
	fieldDevTemp   = 17
	fieldTail      = 25
	minFieldCount  = 20
	tailFieldCount = 8
)

// DecodeError reports an unparseable field and its index in the payload.
type DecodeError struct {
	Field int
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mdvr: decode field %d %q: %v", e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Location is the location-and-status block common to all device reports.
type Location struct {
	Valid     bool
	Latitude  float64
	Longitude float64
	Speed     float64
	Course    float64
	Status    uint32
	Mask      uint32

	DeviceTemp  int
	EngineTemp  int
	VehicleTemp int
}

// RegistrationInfo carries the tail fields of a registration request.
type RegistrationInfo struct {
	ProtocolVersion string
	DeviceType      string
	ServerIP        string
	ServerPort      int
}

// MediaNegotiationInfo carries the tail fields of a media negotiation.
type MediaNegotiationInfo struct {
	ProtocolVersion string
	DeviceType      string
	MediaServerIP   string
	MediaServerPort int
	SessionID       string
	MediaCommand    string
	Channel         int
	FlowType        int
	Plate           string
}

// AlarmInfo carries the tail fields of an alarm start or end report.
type AlarmInfo struct {
	Time          time.Time
	ID            string
	ImageCaptured bool
	ImagePath     string
	VideoRecorded bool
	VideoPath     string
	Source        string
	Name          string
}

// Message is a decoded device report. Exactly one of the variant pointers is
// set for keys that carry tail fields; GpsLog has none.
type Message struct {
	Key      string
	DeviceID string
	Time     time.Time
	Location Location

	Registration *RegistrationInfo
	Media        *MediaNegotiationInfo
	Alarm        *AlarmInfo
}

// DecodeMessage interprets a frame data block as an ASCII field list and maps
// it to a typed message. An unrecognized message key yields (nil, nil): the
// report is dropped without an error. Malformed numeric fields yield a
// *DecodeError naming the offending index.
func DecodeMessage(payload []byte) (*Message, error) {
	fields := strings.Split(string(payload), string(FieldDelimiter))
	if len(fields) < minFieldCount {
		return nil, fmt.Errorf("mdvr: short payload: %d fields", len(fields))
	}

	// Field values are escaped individually by the sender; reserved bytes in
	// free-text fields arrive as two-byte codes.
	for i, f := range fields {
		if strings.IndexByte(f, escapeLead) >= 0 {
			fields[i] = string(Unescape([]byte(f)))
		}
	}

	key := fields[fieldKey]
	switch key {
	case KeyRegistration, KeyGpsLog, KeyAlarmStart, KeyAlarmEnd, KeyMediaNegotiation:
	default:
		return nil, nil
	}

	msg := &Message{
		Key:      key,
		DeviceID: fields[fieldDeviceID],
	}

	t, err := parseTime(fields, fieldTime)
	if err != nil {
		return nil, err
	}
	msg.Time = t

	if err := decodeLocation(fields, &msg.Location); err != nil {
		return nil, err
	}

	switch key {
	case KeyRegistration:
		msg.Registration, err = decodeRegistration(fields)
	case KeyMediaNegotiation:
		msg.Media, err = decodeMediaNegotiation(fields)
	case KeyAlarmStart, KeyAlarmEnd:
		msg.Alarm, err = decodeAlarm(fields)
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

func decodeLocation(fields []string, loc *Location) error {
	loc.Valid = fields[fieldValidity] == "A"

	lon, err := parseDMS(fields, fieldLonDeg)
	if err != nil {
		return err
	}
	lat, err := parseDMS(fields, fieldLatDeg)
	if err != nil {
		return err
	}
	loc.Longitude = lon
	loc.Latitude = lat

	speed, err := parseInt(fields, fieldSpeed)
	if err != nil {
		return err
	}
	course, err := parseInt(fields, fieldCourse)
	if err != nil {
		return err
	}
	loc.Speed = float64(speed) / 100
	loc.Course = float64(course) / 100

	status, err := parseUint32(fields, fieldStatus)
	if err != nil {
		return err
	}
	mask, err := parseUint32(fields, fieldMask)
	if err != nil {
		return err
	}
	loc.Status = status
	loc.Mask = mask

	for i, dst := range []*int{&loc.DeviceTemp, &loc.EngineTemp, &loc.VehicleTemp} {
		v, err := parseInt(fields, fieldDevTemp+i)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

func decodeRegistration(fields []string) (*RegistrationInfo, error) {
	if len(fields) < fieldTail+4 {
		return nil, fmt.Errorf("mdvr: registration payload: %d fields", len(fields))
	}
	port, err := parseInt(fields, fieldTail+3)
	if err != nil {
		return nil, err
	}
	return &RegistrationInfo{
		ProtocolVersion: fields[fieldTail],
		DeviceType:      fields[fieldTail+1],
		ServerIP:        fields[fieldTail+2],
		ServerPort:      port,
	}, nil
}

func decodeMediaNegotiation(fields []string) (*MediaNegotiationInfo, error) {
	if len(fields) < fieldTail+9 {
		return nil, fmt.Errorf("mdvr: media negotiation payload: %d fields", len(fields))
	}
	port, err := parseInt(fields, fieldTail+3)
	if err != nil {
		return nil, err
	}
	channel, err := parseInt(fields, fieldTail+6)
	if err != nil {
		return nil, err
	}
	flowType, err := parseInt(fields, fieldTail+7)
	if err != nil {
		return nil, err
	}
	return &MediaNegotiationInfo{
		ProtocolVersion: fields[fieldTail],
		DeviceType:      fields[fieldTail+1],
		MediaServerIP:   fields[fieldTail+2],
		MediaServerPort: port,
		SessionID:       fields[fieldTail+4],
		MediaCommand:    fields[fieldTail+5],
		Channel:         channel,
		FlowType:        flowType,
		Plate:           fields[fieldTail+8],
	}, nil
}

func decodeAlarm(fields []string) (*AlarmInfo, error) {
	if len(fields) < fieldTail+tailFieldCount {
		return nil, fmt.Errorf("mdvr: alarm payload: %d fields", len(fields))
	}
	t, err := parseTime(fields, fieldTail)
	if err != nil {
		return nil, err
	}
	return &AlarmInfo{
		Time:          t,
		ID:            fields[fieldTail+1],
		ImageCaptured: fields[fieldTail+2] == "1",
		ImagePath:     fields[fieldTail+3],
		VideoRecorded: fields[fieldTail+4] == "1",
		VideoPath:     fields[fieldTail+5],
		Source:        fields[fieldTail+6],
		Name:          fields[fieldTail+7],
	}, nil
}

// parseDMS reads degrees, minutes and scaled seconds from three consecutive
// fields and converts them to decimal degrees rounded to 6 places.
func parseDMS(fields []string, idx int) (float64, error) {
	deg, err := parseInt(fields, idx)
	if err != nil {
		return 0, err
	}
	min, err := parseInt(fields, idx+1)
	if err != nil {
		return 0, err
	}
	sec, err := parseInt64(fields, idx+2)
	if err != nil {
		return 0, err
	}
	return DMSToDecimal(deg, min, sec), nil
}

// DMSToDecimal converts degrees, minutes and seconds scaled by 1e7 to
// decimal degrees rounded to 6 decimal places.
func DMSToDecimal(degrees, minutes int, secondsScaled int64) float64 {
	v := float64(degrees) + float64(minutes)/60 + (float64(secondsScaled)*1e-7)/3600
	return math.Round(v*1e6) / 1e6
}

func parseTime(fields []string, idx int) (time.Time, error) {
	t, err := time.Parse(TimeLayout, fields[idx])
	if err != nil {
		return time.Time{}, &DecodeError{Field: idx, Value: fields[idx], Err: err}
	}
	return t, nil
}

func parseInt(fields []string, idx int) (int, error) {
	v, err := strconv.Atoi(fields[idx])
	if err != nil {
		return 0, &DecodeError{Field: idx, Value: fields[idx], Err: err}
	}
	return v, nil
}

func parseInt64(fields []string, idx int) (int64, error) {
	v, err := strconv.ParseInt(fields[idx], 10, 64)
	if err != nil {
		return 0, &DecodeError{Field: idx, Value: fields[idx], Err: err}
	}
	return v, nil
}

func parseUint32(fields []string, idx int) (uint32, error) {
	v, err := strconv.ParseUint(fields[idx], 10, 32)
	if err != nil {
		return 0, &DecodeError{Field: idx, Value: fields[idx], Err: err}
	}
	return uint32(v), nil
}
