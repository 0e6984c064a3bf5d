package flow

import (
	"fmt"
	"sort"
	"sync"

	"timeflow/internal/runtime/supervisor"
	logx "timeflow/pkg/logx"
)

// Deps is everything the host hands a component at construction time.
type Deps struct {
	Log    logx.Logger
	Out    Outlet
	Runner *supervisor.Supervisor
}

// Factory builds a component instance. cfg already has the definition's
// defaults applied. A factory must reject bad config here rather than defer
// the failure to Start.
type Factory func(deps Deps, id string, cfg Config) (Component, error)

// ConfigEntry describes one default configuration key of a component kind.
// This is descriptive metadata only, not behavior.
type ConfigEntry struct {
	Key         string
	Type        string // "string" | "integer" | "boolean"
	Default     any
	Title       string
	Description string
}

// Definition declares a component kind: the channels it accepts and
// produces, its default config, and how to build one.
type Definition struct {
	Kind        string
	Title       string
	Description string

	// Inputs/Outputs name the accepted and produced channels.
	// "*" means "any channel" (pass-through components).
	Inputs  []string
	Outputs []string

	Defaults []ConfigEntry

	New Factory
}

// Registry maps kind names to definitions. Ordinary polymorphism keyed by a
// string, the closed set of kinds being whatever was registered.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

func (r *Registry) Register(defs ...Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		if d.Kind == "" {
			return fmt.Errorf("definition with empty kind")
		}
		if d.New == nil {
			return fmt.Errorf("definition %q has no factory", d.Kind)
		}
		if _, dup := r.defs[d.Kind]; dup {
			return fmt.Errorf("duplicate definition %q", d.Kind)
		}
		r.defs[d.Kind] = d
	}
	return nil
}

func (r *Registry) Lookup(kind string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[kind]
	return d, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for k := range r.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build instantiates kind with the given id and node config (defaults
// applied on top of the definition).
func (r *Registry) Build(kind, id string, cfg Config, deps Deps) (Component, error) {
	d, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown component kind %q", kind)
	}
	return d.New(deps, id, cfg.WithDefaults(d.Defaults))
}
