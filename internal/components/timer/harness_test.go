package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"timeflow/internal/flow"
	"timeflow/internal/runtime/supervisor"
	logx "timeflow/pkg/logx"
)

// recorder captures emissions for assertions. It implements flow.Outlet.
type recorder struct {
	mu  sync.Mutex
	all []emitted
	ch  chan emitted

	failWith error
}

type emitted struct {
	channel string
	msg     flow.Message
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan emitted, 64)}
}

func (r *recorder) Emit(node, channel string, msg flow.Message) error {
	r.mu.Lock()
	err := r.failWith
	if err == nil {
		r.all = append(r.all, emitted{channel: channel, msg: msg})
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case r.ch <- emitted{channel: channel, msg: msg}:
	default:
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all)
}

func (r *recorder) snapshot() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.all...)
}

// next waits for one emission or fails the test.
func (r *recorder) next(t *testing.T, within time.Duration) emitted {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(within):
		t.Fatalf("no emission within %v", within)
		return emitted{}
	}
}

// quiet asserts no emission arrives within d.
func (r *recorder) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case e := <-r.ch:
		t.Fatalf("unexpected emission %+v", e)
	case <-time.After(d):
	}
}

func newTestDeps(t *testing.T) (flow.Deps, *recorder) {
	t.Helper()
	rec := newRecorder()
	sup := supervisor.New(context.Background(), supervisor.WithLogger(logx.Nop()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	return flow.Deps{Log: logx.Nop(), Out: rec, Runner: sup}, rec
}

// buildWithDefaults constructs a component the way the registry would.
func buildWithDefaults(t *testing.T, kind string, cfg flow.Config, deps flow.Deps) flow.Component {
	t.Helper()
	for _, d := range Definitions() {
		if d.Kind == kind {
			c, err := d.New(deps, "test-"+kind, cfg.WithDefaults(d.Defaults))
			if err != nil {
				t.Fatalf("build %s: %v", kind, err)
			}
			return c
		}
	}
	t.Fatalf("unknown kind %q", kind)
	return nil
}
