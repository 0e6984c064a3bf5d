package timer

import (
	"context"
	"time"

	"timeflow/internal/flow"
	"timeflow/internal/timing"
	logx "timeflow/pkg/logx"
)

// scheduleRetryWait is how long the loop backs off when the wait until the
// next instant cannot be computed (clock skew).
const scheduleRetryWait = 60 * time.Second

// Schedule emits the current unix timestamp (seconds) on the "time" channel
// at every instant matching its cron expression.
//
// An empty expression disables scheduling. An invalid expression is
// rejected at configuration time and never partially applied. A schedule
// with no upcoming instants ends the loop; this is terminal for the task,
// not for the component.
type Schedule struct {
	base
	slot Slot

	sched *timing.Schedule // nil = no schedule; guarded by base.mu
}

func NewSchedule(deps flow.Deps, id string, cfg flow.Config) (flow.Component, error) {
	sched, err := timing.ParseSchedule(cfg.StringOr(cfgSchedule, ""))
	if err != nil {
		return nil, flow.BadConfig(cfgSchedule, err)
	}
	return &Schedule{base: newBase(deps, id, KindSchedule, cfg), sched: sched}, nil
}

func (s *Schedule) Start(ctx context.Context) error {
	runCtx := s.markRunning()
	if sched := s.schedule(); sched != nil {
		s.startLoop(runCtx, sched)
	}
	return nil
}

func (s *Schedule) Stop(ctx context.Context) error {
	s.slot.Cancel()
	s.markStopped()
	return nil
}

func (s *Schedule) SetConfig(cfg flow.Config) error {
	expr, present := cfg.String(cfgSchedule)
	if !present {
		s.setConfig(cfg)
		return nil
	}

	sched, err := timing.ParseSchedule(expr)
	if err != nil {
		return flow.BadConfig(cfgSchedule, err)
	}

	s.mu.Lock()
	old := s.sched
	unchanged := exprEqual(old, sched)
	if !unchanged {
		s.sched = sched
	}
	s.cfg = cfg.Clone()
	running := s.status == flow.StatusRunning
	runCtx := s.runCtx
	s.mu.Unlock()

	if unchanged || !running {
		return nil
	}

	s.slot.Cancel()
	if sched != nil {
		s.startLoop(runCtx, sched)
	}
	return nil
}

func (s *Schedule) Process(ctx context.Context, channel string, msg flow.Message) error {
	return nil
}

func (s *Schedule) schedule() *timing.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

func (s *Schedule) startLoop(runCtx context.Context, sched *timing.Schedule) {
	s.slot.Replace(runCtx, s.deps.Runner, "schedule.loop", func(tctx context.Context, gen uint64) {
		for {
			wait, ok, err := sched.Until(time.Now())
			if !ok {
				s.log.Error("no upcoming schedule instants; schedule loop ends",
					logx.String("schedule", sched.String()))
				s.slot.Release(gen)
				return
			}
			if err != nil {
				// Can't compute the wait; back off and retry without emitting.
				s.log.Error("failed to compute wait until next instant",
					logx.Err(err), logx.Duration("retry_in", scheduleRetryWait))
				if !sleep(tctx, scheduleRetryWait) {
					return
				}
				continue
			}

			s.log.Debug("schedule armed",
				logx.Time("next", time.Now().Add(wait)), logx.Duration("in", wait))

			if !sleep(tctx, wait) {
				return
			}
			if !s.slot.Current(gen) {
				return
			}
			s.emit(flow.ChannelTime, flow.New(time.Now().Unix()))
		}
	})
}

func exprEqual(a, b *timing.Schedule) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
