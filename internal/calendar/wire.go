package calendar

import (
	"errors"
	"strings"
	"time"
)

// WireTimeLayout is the naive local wall-clock format exchanged with the
// booking backend.
const WireTimeLayout = "2006-01-02T15:04:05"

// ErrInvalidWireTime is returned for timestamps in neither accepted format.
var ErrInvalidWireTime = errors.New("calendar: invalid timestamp")

// FormatWireTime renders t as a naive wall-clock string in loc.
func FormatWireTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(WireTimeLayout)
}

// ParseWireTime reads a naive wall-clock string in loc. RFC 3339 input with
// an explicit offset is accepted and converted into loc.
func ParseWireTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidWireTime
	}
	if ts, err := time.ParseInLocation(WireTimeLayout, value, loc); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.In(loc), nil
	}
	return time.Time{}, ErrInvalidWireTime
}
