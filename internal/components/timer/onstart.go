package timer

import (
	"context"

	"timeflow/internal/flow"
	"timeflow/internal/timing"
)

// OnStart emits one unit signal on the "unit" channel a configurable delay
// after the component starts. It does not repeat.
type OnStart struct {
	base
	slot Slot
}

func NewOnStart(deps flow.Deps, id string, cfg flow.Config) (flow.Component, error) {
	if _, err := timing.ParseDurationMS(cfg.Int64Or(cfgDelay, defaultDelayMS)); err != nil {
		return nil, flow.BadConfig(cfgDelay, err)
	}
	return &OnStart{base: newBase(deps, id, KindOnStart, cfg)}, nil
}

func (o *OnStart) Start(ctx context.Context) error {
	runCtx := o.markRunning()

	wait, err := timing.ParseDurationMS(o.config().Int64Or(cfgDelay, defaultDelayMS))
	if err != nil {
		return flow.BadConfig(cfgDelay, err)
	}

	o.slot.Replace(runCtx, o.deps.Runner, "onstart.emit", func(tctx context.Context, gen uint64) {
		defer o.slot.Release(gen)
		if !sleep(tctx, wait) {
			return
		}
		if !o.slot.Current(gen) {
			return
		}
		o.emit(flow.ChannelUnit, flow.Unit())
	})
	return nil
}

func (o *OnStart) Stop(ctx context.Context) error {
	o.slot.Cancel()
	o.markStopped()
	return nil
}

func (o *OnStart) SetConfig(cfg flow.Config) error {
	if _, err := timing.ParseDurationMS(cfg.Int64Or(cfgDelay, defaultDelayMS)); err != nil {
		return flow.BadConfig(cfgDelay, err)
	}
	// Takes effect on the next Start; an armed one-shot keeps its delay.
	o.setConfig(cfg)
	return nil
}

func (o *OnStart) Process(ctx context.Context, channel string, msg flow.Message) error {
	// No inputs declared; tolerate stray deliveries.
	return nil
}
