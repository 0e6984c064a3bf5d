// Package engine is the dataflow host: it builds component instances from
// the graph config, routes emissions along the declared edges, and drives
// the component lifecycle (start, stop, reconfigure).
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"timeflow/internal/config"
	"timeflow/internal/flow"
	"timeflow/internal/runtime/supervisor"
	logx "timeflow/pkg/logx"
)

type edge struct {
	from config.Endpoint
	to   config.Endpoint
}

type Engine struct {
	log    logx.Logger
	reg    *flow.Registry
	router *flow.Router
	sup    *supervisor.Supervisor

	mu      sync.Mutex
	nodes   map[string]flow.Component
	cfgHash map[string]uint64 // per-node config content hash
	edges   []edge
	started bool
	unsub   func()
}

func New(log logx.Logger, reg *flow.Registry) *Engine {
	return &Engine{
		log:     log,
		reg:     reg,
		router:  flow.NewRouter(log),
		sup:     supervisor.New(context.Background(), supervisor.WithLogger(log)),
		nodes:   map[string]flow.Component{},
		cfgHash: map[string]uint64{},
	}
}

// Router exposes the routing surface (tests and tooling subscribe to it).
func (e *Engine) Router() *flow.Router { return e.router }

// Check validates a config against the registry: every kind must be known
// and every node's config accepted by its factory. Nothing is started.
func (e *Engine) Check(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	deps := flow.Deps{Log: logx.Nop(), Out: e.router, Runner: e.sup}
	for _, n := range cfg.Graph.Nodes {
		if _, err := e.reg.Build(n.Kind, n.ID, flow.Config(n.Config), deps); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}
	return nil
}

// Start builds and starts every node and begins routing. It fails without
// leaving half a graph running.
func (e *Engine) Start(ctx context.Context, cfg *config.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("engine already started")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps := flow.Deps{Log: e.log, Out: e.router, Runner: e.sup}
	nodes := map[string]flow.Component{}
	hashes := map[string]uint64{}
	for _, n := range cfg.Graph.Nodes {
		c, err := e.reg.Build(n.Kind, n.ID, flow.Config(n.Config), deps)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		nodes[n.ID] = c
		hashes[n.ID] = hashNodeConfig(n.Config)
	}

	edges, err := parseEdges(cfg.Graph.Edges)
	if err != nil {
		return err
	}

	var started []flow.Component
	for id, c := range nodes {
		if err := c.Start(ctx); err != nil {
			for _, s := range started {
				_ = s.Stop(ctx)
			}
			return fmt.Errorf("start node %q: %w", id, err)
		}
		started = append(started, c)
	}

	e.nodes = nodes
	e.cfgHash = hashes
	e.edges = edges
	e.started = true

	emissions, unsub := e.router.Subscribe(256)
	e.unsub = unsub
	e.sup.Go0("engine.dispatch", func(ctx context.Context) {
		e.dispatch(ctx, emissions)
	})

	e.log.Info("engine started",
		logx.Int("nodes", len(nodes)), logx.Int("edges", len(edges)))
	return nil
}

// Stop stops every node, stops routing, and joins all background tasks.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	nodes := e.nodes
	unsub := e.unsub
	e.started = false
	e.unsub = nil
	e.mu.Unlock()

	var errs []error
	for id, c := range nodes {
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop node %q: %w", id, err))
		}
	}
	if unsub != nil {
		unsub()
	}
	if err := e.sup.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	e.log.Info("engine stopped")
	return errors.Join(errs...)
}

// Apply reconfigures the running graph to match cfg.
//
// Per-node: unchanged config is a no-op (no task restart); changed config
// becomes one SetConfig call; new nodes are built and started; removed
// nodes are stopped and dropped. Edges are replaced wholesale. A node that
// rejects its new config keeps its previous one; the rest of the graph
// still applies.
func (e *Engine) Apply(ctx context.Context, cfg *config.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return errors.New("engine not started")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	edges, err := parseEdges(cfg.Graph.Edges)
	if err != nil {
		return err
	}

	deps := flow.Deps{Log: e.log, Out: e.router, Runner: e.sup}
	var errs []error
	seen := map[string]bool{}

	for _, n := range cfg.Graph.Nodes {
		seen[n.ID] = true
		h := hashNodeConfig(n.Config)

		if c, ok := e.nodes[n.ID]; ok {
			if e.cfgHash[n.ID] == h {
				continue // unchanged: no restart, no interruption
			}
			if err := c.SetConfig(flow.Config(n.Config)); err != nil {
				errs = append(errs, fmt.Errorf("node %q: %w", n.ID, err))
				continue
			}
			e.cfgHash[n.ID] = h
			e.log.Debug("node reconfigured", logx.String("node", n.ID))
			continue
		}

		c, err := e.reg.Build(n.Kind, n.ID, flow.Config(n.Config), deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID, err))
			continue
		}
		if err := c.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("start node %q: %w", n.ID, err))
			continue
		}
		e.nodes[n.ID] = c
		e.cfgHash[n.ID] = h
		e.log.Info("node added", logx.String("node", n.ID), logx.String("kind", n.Kind))
	}

	for id, c := range e.nodes {
		if seen[id] {
			continue
		}
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop node %q: %w", id, err))
		}
		delete(e.nodes, id)
		delete(e.cfgHash, id)
		e.log.Info("node removed", logx.String("node", id))
	}

	e.edges = edges
	return errors.Join(errs...)
}

// dispatch forwards each emission along matching edges.
func (e *Engine) dispatch(ctx context.Context, emissions <-chan flow.Emission) {
	for {
		select {
		case <-ctx.Done():
			return
		case em, ok := <-emissions:
			if !ok {
				return
			}
			e.route(ctx, em)
		}
	}
}

func (e *Engine) route(ctx context.Context, em flow.Emission) {
	e.mu.Lock()
	edges := e.edges
	targets := make([]deliver, 0, 2)
	for _, ed := range edges {
		if ed.from.Node != em.Node || !ed.from.Matches(em.Channel) {
			continue
		}
		c, ok := e.nodes[ed.to.Node]
		if !ok {
			continue
		}
		ch := ed.to.Channel
		if ch == "*" {
			ch = em.Channel
		}
		targets = append(targets, deliver{c: c, channel: ch})
	}
	e.mu.Unlock()

	for _, tg := range targets {
		if err := tg.c.Process(ctx, tg.channel, em.Msg); err != nil {
			e.log.Warn("process failed",
				logx.String("from", em.Node),
				logx.String("to", tg.c.ID()),
				logx.String("channel", tg.channel),
				logx.Err(err))
		}
	}
}

type deliver struct {
	c       flow.Component
	channel string
}

func parseEdges(raw []config.EdgeConfig) ([]edge, error) {
	edges := make([]edge, 0, len(raw))
	for i, ec := range raw {
		from, err := config.ParseEndpoint(ec.From)
		if err != nil {
			return nil, fmt.Errorf("edges[%d].from: %w", i, err)
		}
		to, err := config.ParseEndpoint(ec.To)
		if err != nil {
			return nil, fmt.Errorf("edges[%d].to: %w", i, err)
		}
		edges = append(edges, edge{from: from, to: to})
	}
	return edges, nil
}

// hashNodeConfig hashes a node config after canonicalizing it through JSON,
// so key order and formatting don't count as changes.
func hashNodeConfig(m map[string]any) uint64 {
	if len(m) == 0 {
		return 0
	}
	b, err := json.Marshal(m)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
