package timer

import "timeflow/internal/flow"

// Component kind names, as referenced by graph configs.
const (
	KindDelay    = "delay"
	KindInterval = "interval_timer"
	KindOnStart  = "on_start"
	KindSchedule = "schedule_timer"
	KindThrottle = "throttle_time"
)

// Definitions returns the registration metadata for every timed component:
// accepted inputs, produced outputs, and default configuration. This is
// descriptive only; behavior lives in the components.
func Definitions() []flow.Definition {
	return []flow.Definition{
		{
			Kind:        KindDelay,
			Title:       "Delay",
			Description: "Delays output by a specified time",
			Inputs:      []string{"*"},
			Outputs:     []string{"*"},
			Defaults: []flow.ConfigEntry{
				{Key: cfgDelay, Type: "integer", Default: defaultDelayMS, Title: "delay (ms)"},
				{Key: cfgMaxNumData, Type: "integer", Default: defaultMaxNumData, Title: "max num data"},
			},
			New: NewDelay,
		},
		{
			Kind:        KindInterval,
			Title:       "Interval Timer",
			Description: "Outputs a unit signal at specified intervals",
			Outputs:     []string{flow.ChannelUnit},
			Defaults: []flow.ConfigEntry{
				{Key: cfgInterval, Type: "string", Default: defaultInterval, Description: "(ex. 10s, 5m, 100ms, 1h, 1d)"},
			},
			New: NewInterval,
		},
		{
			Kind:    KindOnStart,
			Title:   "On Start",
			Outputs: []string{flow.ChannelUnit},
			Defaults: []flow.ConfigEntry{
				{Key: cfgDelay, Type: "integer", Default: defaultDelayMS, Title: "delay (ms)"},
			},
			New: NewOnStart,
		},
		{
			Kind:    KindSchedule,
			Title:   "Schedule Timer",
			Outputs: []string{flow.ChannelTime},
			Defaults: []flow.ConfigEntry{
				{Key: cfgSchedule, Type: "string", Default: defaultSchedule, Description: "sec min hour day month week (year)"},
			},
			New: NewSchedule,
		},
		{
			Kind:    KindThrottle,
			Title:   "Throttle Time",
			Inputs:  []string{"*"},
			Outputs: []string{"*"},
			Defaults: []flow.ConfigEntry{
				{Key: cfgTime, Type: "string", Default: defaultTime, Description: "(ex. 10s, 5m, 100ms, 1h, 1d)"},
				{Key: cfgMaxNumData, Type: "integer", Default: int64(0), Title: "max num data", Description: "0: no data, -1: all data"},
			},
			New: NewThrottle,
		},
	}
}

// Register adds all timed component definitions to reg.
func Register(reg *flow.Registry) error {
	return reg.Register(Definitions()...)
}
