// Package config loads and watches the graph configuration file: which
// component nodes exist, how their channels are wired, and the logging
// setup. YAML and JSON are both accepted; decoding is strict.
package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`
	Graph   GraphConfig   `json:"graph"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console,omitempty"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// GraphConfig declares the dataflow graph this process runs.
type GraphConfig struct {
	Nodes []NodeConfig `json:"nodes"`
	Edges []EdgeConfig `json:"edges,omitempty"`
}

// NodeConfig declares one component instance.
type NodeConfig struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// Config holds the node's settings (delay/interval/schedule/time
	// strings, numeric limits); keys the kind doesn't declare are still
	// passed through.
	Config map[string]any `json:"config,omitempty"`
}

// EdgeConfig wires one output channel to one input channel. Endpoints use
// "node/channel" notation; the channel part may be "*" to match every
// channel of the node.
type EdgeConfig struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Endpoint is a parsed edge end.
type Endpoint struct {
	Node    string
	Channel string
}

func ParseEndpoint(s string) (Endpoint, error) {
	node, channel, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || node == "" || channel == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q, expected \"node/channel\"", s)
	}
	return Endpoint{Node: node, Channel: channel}, nil
}

// Matches reports whether the endpoint selects the given channel.
func (e Endpoint) Matches(channel string) bool {
	return e.Channel == "*" || e.Channel == channel
}

// Validate checks the structural invariants that do not need the component
// registry: unique non-empty node ids and well-formed edges referencing
// declared nodes. Kind and per-node config validation happens in the engine
// where the registry lives.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, n := range c.Graph.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("graph.nodes[%d]: empty id", i)
		}
		if strings.TrimSpace(n.Kind) == "" {
			return fmt.Errorf("graph.nodes[%d] (%s): empty kind", i, n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("graph.nodes: duplicate id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for i, e := range c.Graph.Edges {
		from, err := ParseEndpoint(e.From)
		if err != nil {
			return fmt.Errorf("graph.edges[%d].from: %w", i, err)
		}
		to, err := ParseEndpoint(e.To)
		if err != nil {
			return fmt.Errorf("graph.edges[%d].to: %w", i, err)
		}
		if !seen[from.Node] {
			return fmt.Errorf("graph.edges[%d].from: unknown node %q", i, from.Node)
		}
		if !seen[to.Node] {
			return fmt.Errorf("graph.edges[%d].to: unknown node %q", i, to.Node)
		}
	}
	return nil
}

// Node returns the declared node with the given id.
func (c *Config) Node(id string) (NodeConfig, bool) {
	for _, n := range c.Graph.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeConfig{}, false
}
