package common

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTime is returned when a departure timestamp matches none of the
// accepted layouts.
var ErrInvalidTime = errors.New("invalid time format; use YYYY-MM-DD HH:MM[:SS] or RFC3339")

// naiveLayouts carry no zone and are interpreted in the caller's location.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseLocalTime parses a scheduled departure. RFC3339 values keep their
// offset; naive values are read as wall-clock time in loc.
func ParseLocalTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTime
	}
	if loc == nil {
		loc = time.Local
	}

	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, ErrInvalidTime
}
