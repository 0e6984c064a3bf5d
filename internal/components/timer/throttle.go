package timer

import (
	"context"
	"time"

	"timeflow/internal/flow"
	"timeflow/internal/timing"
)

// pending is one queued message paired with its originating channel.
type pending struct {
	channel string
	msg     flow.Message
}

// Throttle is a leaky bucket: at most one emission per configured period.
//
// The first arrival of a free cycle passes immediately and arms the cycle
// task; arrivals while a cycle is in flight are queued per max_num_data
// (0 keeps nothing, a positive bound drops the oldest on overflow, a
// negative value means unbounded). Each period boundary drains one queued
// item; an empty queue releases the cycle so the next arrival passes
// immediately again.
type Throttle struct {
	base
	slot Slot

	// cycle is the generation of the in-flight cycle task, 0 when free.
	// Guarded, together with queue, by base.mu so admission and drain
	// decisions are consistent.
	cycle uint64
	queue []pending
}

func NewThrottle(deps flow.Deps, id string, cfg flow.Config) (flow.Component, error) {
	if _, err := timing.ParseDuration(cfg.StringOr(cfgTime, defaultTime)); err != nil {
		return nil, flow.BadConfig(cfgTime, err)
	}
	return &Throttle{base: newBase(deps, id, KindThrottle, cfg)}, nil
}

func (t *Throttle) Start(ctx context.Context) error {
	// A cycle armed during a racing shutdown may have died without clearing
	// its state; a fresh run must not inherit it.
	t.slot.Cancel()
	t.mu.Lock()
	t.cycle = 0
	t.mu.Unlock()
	t.markRunning()
	return nil
}

func (t *Throttle) Stop(ctx context.Context) error {
	t.slot.Cancel()
	t.mu.Lock()
	t.cycle = 0
	// The queue stays whatever it was; stopping must not corrupt it.
	t.mu.Unlock()
	t.markStopped()
	return nil
}

func (t *Throttle) SetConfig(cfg flow.Config) error {
	if _, err := timing.ParseDuration(cfg.StringOr(cfgTime, defaultTime)); err != nil {
		return flow.BadConfig(cfgTime, err)
	}
	maxPending := cfg.Int64Or(cfgMaxNumData, 0)

	t.mu.Lock()
	// Shrinking the bound drops the oldest excess immediately.
	if maxPending >= 0 && int64(len(t.queue)) > maxPending {
		drop := int64(len(t.queue)) - maxPending
		t.queue = append([]pending(nil), t.queue[drop:]...)
	}
	t.cfg = cfg.Clone()
	t.mu.Unlock()
	return nil
}

func (t *Throttle) Process(ctx context.Context, channel string, msg flow.Message) error {
	runCtx := t.runContext()
	if runCtx == nil {
		return nil
	}
	maxPending := t.config().Int64Or(cfgMaxNumData, 0)

	t.mu.Lock()
	if runCtx.Err() != nil {
		// Stop landed between the run-state read and here; treat the
		// message like any other arrival at a stopped component.
		t.mu.Unlock()
		return nil
	}
	if t.cycle != 0 {
		// A cycle is in flight: queue per policy instead of emitting.
		switch {
		case maxPending == 0:
			// keep no queued data
		default:
			t.queue = append(t.queue, pending{channel: channel, msg: msg})
			if maxPending > 0 && int64(len(t.queue)) > maxPending {
				t.queue = append([]pending(nil), t.queue[1:]...)
			}
		}
		t.mu.Unlock()
		return nil
	}

	// Free cycle: this message passes, and the cycle task is armed before
	// releasing the lock so a concurrent arrival sees it.
	gen := t.slot.Replace(runCtx, t.deps.Runner, "throttle.cycle", t.runCycle)
	t.cycle = gen
	t.mu.Unlock()

	t.emit(channel, msg)
	return nil
}

// runCycle drains one queued item per period until the queue is empty, then
// releases the cycle.
func (t *Throttle) runCycle(tctx context.Context, gen uint64) {
	for {
		period, err := timing.ParseDuration(t.config().StringOr(cfgTime, defaultTime))
		if err != nil {
			// SetConfig validates, so this is unreachable; be safe anyway.
			period = time.Second
		}

		if !sleep(tctx, period) {
			// Canceled mid-sleep. If this task still owns the cycle, clear
			// it so the next arrival after a restart passes immediately.
			t.mu.Lock()
			if t.cycle == gen {
				t.cycle = 0
			}
			t.mu.Unlock()
			t.slot.Release(gen)
			return
		}

		t.mu.Lock()
		if !t.slot.Current(gen) {
			t.mu.Unlock()
			return
		}
		if len(t.queue) == 0 {
			// Nothing waited out the period: free the cycle.
			t.cycle = 0
			t.mu.Unlock()
			t.slot.Release(gen)
			return
		}
		item := t.queue[0]
		t.queue = append([]pending(nil), t.queue[1:]...)
		t.mu.Unlock()

		t.emit(item.channel, item.msg)
	}
}

// QueueLen reports how many messages await emission.
func (t *Throttle) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}
