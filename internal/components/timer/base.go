// Package timer implements the timed emission and rate-control components:
// one-shot delay, start-up delay, periodic interval, cron schedule, and a
// leaky-bucket throttle.
//
// Every component follows one structural pattern: a stateful emitter with an
// optional background task owned through a Slot. Locks guard only the brief
// critical sections that swap task handles and mutate counters/queues; no
// lock is ever held across a timed sleep.
package timer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"timeflow/internal/flow"
	logx "timeflow/pkg/logx"
)

// Config keys and channel names shared by the components in this package.
const (
	cfgDelay      = "delay"
	cfgMaxNumData = "max_num_data"
	cfgInterval   = "interval"
	cfgSchedule   = "schedule"
	cfgTime       = "time"
)

const (
	defaultDelayMS    = int64(1000)
	defaultMaxNumData = int64(10)
	defaultInterval   = "10s"
	defaultTime       = "1s"
	defaultSchedule   = "0 0 * * * *"
)

// base carries the state every timed component owns: identity, lifecycle
// status, the current config snapshot, and a run context that is canceled
// on Stop so no background activity outlives the instance.
type base struct {
	id   string
	kind string
	deps flow.Deps
	log  logx.Logger

	// emitFailLog caps delivery-failure log spam from long-lived loops.
	emitFailLog *rate.Limiter

	mu        sync.Mutex
	status    flow.Status
	cfg       flow.Config
	runCtx    context.Context
	runCancel context.CancelFunc
}

func newBase(deps flow.Deps, id, kind string, cfg flow.Config) base {
	return base{
		id:          id,
		kind:        kind,
		deps:        deps,
		log:         deps.Log.With(logx.String("node", id), logx.String("kind", kind)),
		emitFailLog: rate.NewLimiter(rate.Every(time.Second), 3),
		status:      flow.StatusCreated,
		cfg:         cfg.Clone(),
	}
}

func (b *base) ID() string   { return b.id }
func (b *base) Kind() string { return b.kind }

func (b *base) Status() flow.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// config returns the current snapshot. Callers must treat it as read-only.
func (b *base) config() flow.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *base) setConfig(cfg flow.Config) {
	b.mu.Lock()
	b.cfg = cfg.Clone()
	b.mu.Unlock()
}

// markRunning flips to Running and arms a fresh run context, child of the
// host runtime's context. Returns that context for background tasks.
func (b *base) markRunning() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = flow.StatusRunning
	b.runCtx, b.runCancel = context.WithCancel(b.deps.Runner.Context())
	return b.runCtx
}

// markStopped flips to Stopped and cancels the run context, aborting every
// background task spawned since markRunning.
func (b *base) markStopped() {
	b.mu.Lock()
	cancel := b.runCancel
	b.runCancel = nil
	b.status = flow.StatusStopped
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// runContext returns the context for background work, or nil when not
// running.
func (b *base) runContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runCancel == nil {
		return nil
	}
	return b.runCtx
}

// emit pushes a result through the host's routing surface. Failures are
// logged (rate-limited) and swallowed; they never abort a task's loop.
func (b *base) emit(channel string, msg flow.Message) {
	if err := b.deps.Out.Emit(b.id, channel, msg); err != nil {
		if b.emitFailLog.Allow() {
			b.log.Error("failed to deliver emission", logx.String("channel", channel), logx.Err(err))
		}
	}
}
