package timer

import (
	"context"
	"testing"
	"time"

	"timeflow/internal/flow"
)

func TestIntervalEmitsPeriodically(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindInterval, flow.Config{"interval": "50ms"}, deps)
	startComponent(t, c)

	deadline := time.After(400 * time.Millisecond)
	got := 0
	for got < 3 {
		select {
		case e := <-rec.ch:
			if e.channel != flow.ChannelUnit {
				t.Fatalf("channel = %q, want unit", e.channel)
			}
			got++
		case <-deadline:
			t.Fatalf("only %d emissions before deadline", got)
		}
	}
}

func TestIntervalStopHaltsEmissions(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindInterval, flow.Config{"interval": "30ms"}, deps)
	startComponent(t, c)

	rec.next(t, time.Second)
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Drain anything emitted before the stop landed, then expect silence.
	for {
		select {
		case <-rec.ch:
			continue
		case <-time.After(60 * time.Millisecond):
		}
		break
	}
	rec.quiet(t, 120*time.Millisecond)
}

func TestIntervalReconfigureReplacesTask(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)
	c := buildWithDefaults(t, KindInterval, flow.Config{"interval": "10s"}, deps)
	startComponent(t, c)

	iv := c.(*Interval)
	before := currentGen(&iv.slot)

	// Unchanged interval: no task restart, no interruption of the sleep.
	if err := c.SetConfig(flow.Config{"interval": "10s"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got := currentGen(&iv.slot); got != before {
		t.Fatalf("idempotent SetConfig restarted the task (gen %d -> %d)", before, got)
	}

	// Changed interval: old task atomically replaced.
	if err := c.SetConfig(flow.Config{"interval": "20s"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got := currentGen(&iv.slot); got == before {
		t.Fatal("changed interval did not replace the task")
	}
}

func TestIntervalReconfigureWhileStoppedStartsNothing(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindInterval, flow.Config{"interval": "1h"}, deps)

	if err := c.SetConfig(flow.Config{"interval": "15ms"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	iv := c.(*Interval)
	if iv.slot.Active() {
		t.Fatal("SetConfig while stopped must not start a task")
	}
	rec.quiet(t, 80*time.Millisecond)

	// The stored interval is used on the next Start.
	startComponent(t, c)
	rec.next(t, time.Second)
}

func TestIntervalRejectsBadInterval(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)
	if _, err := NewInterval(deps, "i", flow.Config{"interval": "soon"}); err == nil {
		t.Fatal("expected config error")
	}

	c := buildWithDefaults(t, KindInterval, flow.Config{}, deps)
	if err := c.SetConfig(flow.Config{"interval": "-3s"}); err == nil {
		t.Fatal("expected config error from SetConfig")
	}
}

func currentGen(s *Slot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}
