package timing

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts seconds-granular expressions:
//
//	sec min hour dom month dow
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule is a compiled cron expression. It answers "what is the next
// instant strictly after t matching this expression", in UTC.
type Schedule struct {
	expr string
	spec cron.Schedule
}

// ParseSchedule compiles a 6-field (seconds-granular) or 7-field cron
// expression. A blank expression means "no schedule" and returns (nil, nil).
//
// The optional 7th field is a year column. The underlying parser has no year
// support, so only the wildcard "*" is accepted there; it is stripped before
// compilation. Anything else is rejected rather than silently ignored.
func ParseSchedule(raw string) (*Schedule, error) {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return nil, nil
	}

	fields := strings.Fields(expr)
	switch len(fields) {
	case 6:
		// sec min hour dom month dow
	case 7:
		if fields[6] != "*" {
			return nil, fmt.Errorf("invalid cron schedule %q: year field must be \"*\"", raw)
		}
		fields = fields[:6]
	default:
		return nil, fmt.Errorf("invalid cron schedule %q: expected 6 or 7 fields, got %d", raw, len(fields))
	}

	spec, err := cronParser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", raw, err)
	}
	return &Schedule{expr: expr, spec: spec}, nil
}

func (s *Schedule) String() string { return s.expr }

// Next returns the next matching instant strictly after t, in UTC; asking
// at a matching instant yields the following one, which is what prevents a
// duplicate emission after a wake. A zero time means the schedule has no
// upcoming instants.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.spec.Next(t.UTC())
}

// Until returns how long to sleep from now until the next matching instant.
//
// ok is false when the schedule is exhausted. err is non-nil when the wait
// cannot be computed (next instant in the past; clock skew).
func (s *Schedule) Until(now time.Time) (d time.Duration, ok bool, err error) {
	next := s.Next(now)
	if next.IsZero() {
		return 0, false, nil
	}
	d = next.Sub(now.UTC())
	if d < 0 {
		return 0, true, fmt.Errorf("next instant %s is in the past (now %s)", next, now.UTC())
	}
	return d, true, nil
}
