package timer

import (
	"context"

	"timeflow/internal/flow"
	"timeflow/internal/timing"
	logx "timeflow/pkg/logx"
)

// Delay re-emits each inbound message unchanged, on the channel it arrived
// on, after a configurable delay. The number of in-flight deliveries is
// capped; excess messages are dropped silently (backpressure, not an
// error).
type Delay struct {
	base

	waiting int64 // guarded by base.mu
}

func NewDelay(deps flow.Deps, id string, cfg flow.Config) (flow.Component, error) {
	if _, err := timing.ParseDurationMS(cfg.Int64Or(cfgDelay, defaultDelayMS)); err != nil {
		return nil, flow.BadConfig(cfgDelay, err)
	}
	return &Delay{base: newBase(deps, id, KindDelay, cfg)}, nil
}

func (d *Delay) Start(ctx context.Context) error {
	d.markRunning()
	return nil
}

func (d *Delay) Stop(ctx context.Context) error {
	d.markStopped()
	return nil
}

func (d *Delay) SetConfig(cfg flow.Config) error {
	if _, err := timing.ParseDurationMS(cfg.Int64Or(cfgDelay, defaultDelayMS)); err != nil {
		return flow.BadConfig(cfgDelay, err)
	}
	d.setConfig(cfg)
	return nil
}

func (d *Delay) Process(ctx context.Context, channel string, msg flow.Message) error {
	cfg := d.config()
	wait, err := timing.ParseDurationMS(cfg.Int64Or(cfgDelay, defaultDelayMS))
	if err != nil {
		return flow.BadConfig(cfgDelay, err)
	}
	maxInFlight := cfg.Int64Or(cfgMaxNumData, defaultMaxNumData)

	runCtx := d.runContext()
	if runCtx == nil {
		return nil
	}

	// Admission check; avoids generating unbounded timers.
	d.mu.Lock()
	if d.waiting >= maxInFlight {
		d.mu.Unlock()
		d.log.Debug("delay dropped message (in-flight cap)",
			logx.Int64("max", maxInFlight), logx.String("channel", channel))
		return nil
	}
	d.waiting++
	d.mu.Unlock()

	d.deps.Runner.Go0("delay.emit", func(context.Context) {
		defer func() {
			d.mu.Lock()
			d.waiting--
			d.mu.Unlock()
		}()
		if !sleep(runCtx, wait) {
			return
		}
		d.emit(channel, msg)
	})
	return nil
}

// InFlight reports how many delayed deliveries are currently pending.
func (d *Delay) InFlight() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting
}
