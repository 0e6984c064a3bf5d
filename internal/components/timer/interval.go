package timer

import (
	"context"
	"time"

	"timeflow/internal/flow"
	"timeflow/internal/timing"
	logx "timeflow/pkg/logx"
)

// Interval emits a unit signal on the "unit" channel every configured
// interval.
//
// Reconfiguring the interval while running atomically replaces the ticking
// task; the new interval takes effect for the next sleep and the partially
// elapsed one is discarded. An unchanged interval is a no-op (no task
// restart).
type Interval struct {
	base
	slot Slot

	every time.Duration // guarded by base.mu
}

func NewInterval(deps flow.Deps, id string, cfg flow.Config) (flow.Component, error) {
	every, err := timing.ParseDuration(cfg.StringOr(cfgInterval, defaultInterval))
	if err != nil {
		return nil, flow.BadConfig(cfgInterval, err)
	}
	c := &Interval{base: newBase(deps, id, KindInterval, cfg), every: every}
	return c, nil
}

func (c *Interval) Start(ctx context.Context) error {
	runCtx := c.markRunning()
	c.startTicker(runCtx, c.interval())
	return nil
}

func (c *Interval) Stop(ctx context.Context) error {
	c.slot.Cancel()
	c.markStopped()
	return nil
}

func (c *Interval) SetConfig(cfg flow.Config) error {
	every, err := timing.ParseDuration(cfg.StringOr(cfgInterval, defaultInterval))
	if err != nil {
		return flow.BadConfig(cfgInterval, err)
	}

	c.mu.Lock()
	changed := every != c.every
	if changed {
		c.every = every
	}
	c.cfg = cfg.Clone()
	running := c.status == flow.StatusRunning
	runCtx := c.runCtx
	c.mu.Unlock()

	if changed && running {
		// Replace aborts the old ticker under the slot lock; the partially
		// elapsed sleep dies with it.
		c.startTicker(runCtx, every)
	}
	return nil
}

func (c *Interval) Process(ctx context.Context, channel string, msg flow.Message) error {
	return nil
}

func (c *Interval) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.every
}

func (c *Interval) startTicker(runCtx context.Context, every time.Duration) {
	c.slot.Replace(runCtx, c.deps.Runner, "interval.tick", func(tctx context.Context, gen uint64) {
		c.log.Debug("interval ticker started", logx.Duration("every", every))
		for {
			if !sleep(tctx, every) {
				return
			}
			if !c.slot.Current(gen) {
				return
			}
			c.emit(flow.ChannelUnit, flow.Unit())
		}
	})
}
