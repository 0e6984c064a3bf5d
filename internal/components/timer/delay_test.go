package timer

import (
	"context"
	"testing"
	"time"

	"timeflow/internal/flow"
)

func startComponent(t *testing.T, c flow.Component) {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
}

func TestDelayEmitsOnArrivalChannel(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindDelay, flow.Config{"delay": 30}, deps)
	startComponent(t, c)

	msg := flow.Message{ID: "m1", Payload: "hello"}
	if err := c.Process(context.Background(), "data", msg); err != nil {
		t.Fatalf("Process: %v", err)
	}

	e := rec.next(t, time.Second)
	if e.channel != "data" {
		t.Fatalf("channel = %q, want data", e.channel)
	}
	if e.msg.ID != "m1" || e.msg.Payload != "hello" {
		t.Fatalf("message altered: %+v", e.msg)
	}
}

func TestDelayInFlightCap(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindDelay, flow.Config{"delay": 80, "max_num_data": 2}, deps)
	startComponent(t, c)

	d := c.(*Delay)
	for i := 0; i < 5; i++ {
		if err := c.Process(context.Background(), "in", flow.New(i)); err != nil {
			t.Fatalf("Process #%d: %v", i, err)
		}
	}
	if got := d.InFlight(); got != 2 {
		t.Fatalf("InFlight = %d, want 2", got)
	}

	// Only the admitted two are ever delivered.
	rec.next(t, time.Second)
	rec.next(t, time.Second)
	rec.quiet(t, 150*time.Millisecond)
	if got := d.InFlight(); got != 0 {
		t.Fatalf("InFlight after drain = %d", got)
	}
}

func TestDelayStopAbortsPending(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindDelay, flow.Config{"delay": 100}, deps)
	startComponent(t, c)

	if err := c.Process(context.Background(), "in", flow.New("x")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	rec.quiet(t, 200*time.Millisecond)
}

func TestDelayIgnoresMessagesWhileStopped(t *testing.T) {
	t.Parallel()
	deps, rec := newTestDeps(t)
	c := buildWithDefaults(t, KindDelay, flow.Config{"delay": 10}, deps)

	// Never started.
	if err := c.Process(context.Background(), "in", flow.New("x")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	rec.quiet(t, 80*time.Millisecond)
}

func TestDelayRejectsNegativeDelay(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)
	if _, err := NewDelay(deps, "d", flow.Config{"delay": -5}); err == nil {
		t.Fatal("expected config error for negative delay")
	}

	c := buildWithDefaults(t, KindDelay, flow.Config{}, deps)
	if err := c.SetConfig(flow.Config{"delay": -5}); err == nil {
		t.Fatal("expected config error from SetConfig")
	}
}
