// Package timing parses the two textual mini-languages used by timed
// components: short duration strings ("200ms", "10s", "5m", "1h", "1d",
// or a bare integer meaning seconds) and 6-or-7-field cron expressions.
package timing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinDuration is the floor applied to every parsed duration. Anything
// shorter would just spin the scheduler.
const MinDuration = 10 * time.Millisecond

var durationRe = regexp.MustCompile(`^(\d+)([a-zA-Z]+)?$`)

// ParseDuration parses strings like "2s", "10m", "200ms".
//
// The unit defaults to seconds when omitted. The result is floored at
// MinDuration; it is never silently clamped to zero. Negative or
// non-numeric input is rejected.
func ParseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in duration %q: %w", raw, err)
	}

	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = "s"
	}

	var d time.Duration
	switch unit {
	case "ms":
		d = time.Duration(n) * time.Millisecond
	case "s":
		d = time.Duration(n) * time.Second
	case "m":
		d = time.Duration(n) * time.Minute
	case "h":
		d = time.Duration(n) * time.Hour
	case "d":
		d = time.Duration(n) * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit %q in duration %q", unit, raw)
	}

	if d < MinDuration {
		d = MinDuration
	}
	return d, nil
}

// ParseDurationMS is ParseDuration for millisecond integers coming from
// numeric config values.
func ParseDurationMS(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("negative duration %dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < MinDuration {
		d = MinDuration
	}
	return d, nil
}
