package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const sampleYAML = `
logging:
  level: debug
  console: true
graph:
  nodes:
    - id: tick
      kind: interval_timer
      config:
        interval: 50ms
    - id: slow
      kind: throttle_time
      config:
        time: 1s
        max_num_data: 2
  edges:
    - from: tick/unit
      to: slow/in
`

func TestManagerParseYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "graph.yaml", sampleYAML)
	m := NewManager(path)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if len(cfg.Graph.Nodes) != 2 || len(cfg.Graph.Edges) != 1 {
		t.Fatalf("graph = %+v", cfg.Graph)
	}

	n, ok := cfg.Node("slow")
	if !ok {
		t.Fatal("node slow missing")
	}
	if n.Kind != "throttle_time" {
		t.Fatalf("kind = %q", n.Kind)
	}
	if n.Config["time"] != "1s" {
		t.Fatalf("config.time = %v", n.Config["time"])
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestManagerRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "bad.yaml", "graph:\n  nodez: []\n")
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestManagerReloadKeepsPreviousOnBadConfig(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "graph.yaml", sampleYAML)
	m := NewManager(path)
	prev, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	// Unparseable file: previous config stays committed, nothing published.
	if err := os.WriteFile(path, []byte("graph:\n  nodez: []\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload(context.Background())
	if m.Get() != prev {
		t.Fatal("bad config replaced the committed one")
	}
	select {
	case cfg := <-sub:
		t.Fatalf("bad config was published: %+v", cfg)
	default:
	}

	// Parseable but rejected by the validator: same outcome.
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		return errors.New("no")
	})
	if err := os.WriteFile(path, []byte("graph:\n  nodes:\n    - id: x\n      kind: delay\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload(context.Background())
	if m.Get() != prev {
		t.Fatal("rejected config replaced the committed one")
	}

	// Accepted change: committed and published.
	m.SetValidator(nil)
	m.reload(context.Background())
	if m.Get() == prev {
		t.Fatal("valid change was not committed")
	}
	select {
	case cfg := <-sub:
		if _, ok := cfg.Node("x"); !ok {
			t.Fatalf("published config missing node x: %+v", cfg)
		}
	default:
		t.Fatal("valid change was not published")
	}
}

func TestManagerReloadSkipsUnchangedContent(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "graph.yaml", sampleYAML)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	m.reload(context.Background())
	select {
	case <-sub:
		t.Fatal("unchanged content was republished")
	default:
	}
}

func TestValidateStructure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "ok",
			cfg: Config{Graph: GraphConfig{
				Nodes: []NodeConfig{{ID: "a", Kind: "delay"}, {ID: "b", Kind: "delay"}},
				Edges: []EdgeConfig{{From: "a/out", To: "b/in"}},
			}},
		},
		{
			name: "duplicate id",
			cfg: Config{Graph: GraphConfig{
				Nodes: []NodeConfig{{ID: "a", Kind: "delay"}, {ID: "a", Kind: "delay"}},
			}},
			wantErr: true,
		},
		{
			name: "empty kind",
			cfg: Config{Graph: GraphConfig{
				Nodes: []NodeConfig{{ID: "a"}},
			}},
			wantErr: true,
		},
		{
			name: "dangling edge",
			cfg: Config{Graph: GraphConfig{
				Nodes: []NodeConfig{{ID: "a", Kind: "delay"}},
				Edges: []EdgeConfig{{From: "a/out", To: "ghost/in"}},
			}},
			wantErr: true,
		},
		{
			name: "malformed endpoint",
			cfg: Config{Graph: GraphConfig{
				Nodes: []NodeConfig{{ID: "a", Kind: "delay"}},
				Edges: []EdgeConfig{{From: "a", To: "a/in"}},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	t.Parallel()
	ep, err := ParseEndpoint("node/chan")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	if ep.Node != "node" || ep.Channel != "chan" {
		t.Fatalf("endpoint = %+v", ep)
	}
	if !ep.Matches("chan") || ep.Matches("other") {
		t.Fatal("Matches misbehaves")
	}

	wild := Endpoint{Node: "n", Channel: "*"}
	if !wild.Matches("anything") {
		t.Fatal("wildcard should match")
	}

	for _, bad := range []string{"", "node", "/chan", "node/"} {
		if _, err := ParseEndpoint(bad); err == nil {
			t.Errorf("ParseEndpoint(%q): expected error", bad)
		}
	}
}
