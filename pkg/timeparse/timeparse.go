// Package timeparse resolves the loosely specified time strings accepted
// by the listing operations into absolute timestamps.
package timeparse

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// seconds per interval unit
var unitSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'D': 86400,
	'W': 604800,
	'M': 2592000,
	'Y': 31536000,
}

// Parse resolves a time string relative to now. Accepted forms:
//
//	"now"                  the reference time itself
//	RFC3339                e.g. "2024-03-01T12:00:00Z"
//	unix seconds           e.g. "1709294400"
//	interval               e.g. "7D", "-2W", "+12h" - relative to now,
//	                       bare and "-" mean that far in the past
//
// Blank input is an error here; callers that treat blank as "backup time
// zero" must handle it before consulting the parser.
func Parse(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time string")
	}
	if strings.EqualFold(s, "now") {
		return now, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if isDigits(s) {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "invalid unix timestamp %q", s)
		}
		return time.Unix(secs, 0).UTC(), nil
	}

	return parseInterval(s, now)
}

func parseInterval(s string, now time.Time) (time.Time, error) {
	direction := int64(-1)
	switch s[0] {
	case '+':
		direction = 1
		s = s[1:]
	case '-':
		s = s[1:]
	}
	if len(s) < 2 {
		return time.Time{}, errors.Errorf("invalid time interval %q", s)
	}

	unit := s[len(s)-1]
	secondsPerUnit, ok := unitSeconds[unit]
	if !ok {
		return time.Time{}, errors.Errorf("invalid time interval unit %q in %q", string(unit), s)
	}

	count, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || count < 0 {
		return time.Time{}, errors.Errorf("invalid time interval count in %q", s)
	}
	// the interval must stay representable as a duration in nanoseconds
	if count > math.MaxInt64/int64(time.Second)/secondsPerUnit {
		return time.Time{}, errors.Errorf("time interval out of range %q", s)
	}

	return now.Add(time.Duration(direction*count*secondsPerUnit) * time.Second), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
