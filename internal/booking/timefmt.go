package booking

import (
	"errors"
	"strings"
	"time"
)

// POSTimeLayout is the POS wire format, MM/DD/YYYY HH:mm.
const POSTimeLayout = "01/02/2006 15:04"

var ErrInvalidDatetime = errors.New("booking: invalid datetime")

// Layouts without an offset are read in the configured location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseInstant reads an ISO-8601 timestamp.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDatetime
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDatetime
}

// FormatPOSTime renders t in loc using POSTimeLayout.
func FormatPOSTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(POSTimeLayout)
}
