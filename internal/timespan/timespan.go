// Package timespan parses and formats the compact duration strings used
// throughout the configuration ("30s", "45m", "2h", "1h30m15s").
package timespan

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Parse converts a timespan string into a Duration. Units are h, m and s
// (case-insensitive) and may be combined in order; a trailing number
// without a unit is read as seconds.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty timespan")
	}

	var total time.Duration
	number := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			number += string(r)
		case r == 'h' || r == 'H':
			v, err := strconv.ParseUint(number, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("parse hours in %q: %w", s, err)
			}
			total += time.Duration(v) * time.Hour
			number = ""
		case r == 'm' || r == 'M':
			v, err := strconv.ParseUint(number, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("parse minutes in %q: %w", s, err)
			}
			total += time.Duration(v) * time.Minute
			number = ""
		case r == 's' || r == 'S':
			v, err := strconv.ParseUint(number, 10, 32)
			if err != nil {
				return 0, fmt.Errorf("parse seconds in %q: %w", s, err)
			}
			total += time.Duration(v) * time.Second
			number = ""
		default:
			return 0, fmt.Errorf("invalid character %q in timespan %q", r, s)
		}
	}

	// Remaining digits without a unit default to seconds.
	if number != "" {
		v, err := strconv.ParseUint(number, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("parse seconds in %q: %w", s, err)
		}
		total += time.Duration(v) * time.Second
	}

	return total, nil
}

// Format renders a Duration as a compact timespan string, omitting zero
// components. The zero duration formats as "0s".
func Format(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}

	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60

	out := ""
	if hours > 0 {
		out += strconv.FormatInt(hours, 10) + "h"
	}
	if minutes > 0 {
		out += strconv.FormatInt(minutes, 10) + "m"
	}
	if seconds > 0 || out == "" {
		out += strconv.FormatInt(seconds, 10) + "s"
	}
	return out
}
