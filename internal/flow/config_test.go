package flow

import "testing"

func TestConfigTypedAccessors(t *testing.T) {
	t.Parallel()
	c := Config{
		"s":     "10s",
		"i":     42,
		"i64":   int64(7),
		"f":     3.0,
		"istr":  "250",
		"b":     true,
		"other": []string{"x"},
	}

	if got := c.StringOr("s", "def"); got != "10s" {
		t.Fatalf("StringOr = %q", got)
	}
	if got := c.StringOr("missing", "def"); got != "def" {
		t.Fatalf("StringOr missing = %q", got)
	}
	for key, want := range map[string]int64{"i": 42, "i64": 7, "f": 3, "istr": 250} {
		if got := c.Int64Or(key, -1); got != want {
			t.Fatalf("Int64Or(%q) = %d, want %d", key, got, want)
		}
	}
	if got := c.Int64Or("other", -1); got != -1 {
		t.Fatalf("Int64Or(other) = %d, want default", got)
	}
	if !c.BoolOr("b", false) {
		t.Fatal("BoolOr(b) = false")
	}
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()
	defs := []ConfigEntry{
		{Key: "delay", Type: "integer", Default: int64(1000)},
		{Key: "interval", Type: "string", Default: "10s"},
	}
	c := Config{"interval": "50ms"}.WithDefaults(defs)
	if got := c.Int64Or("delay", -1); got != 1000 {
		t.Fatalf("delay default = %d", got)
	}
	if got := c.StringOr("interval", ""); got != "50ms" {
		t.Fatalf("interval override = %q", got)
	}
}

func TestConfigCloneIsDetached(t *testing.T) {
	t.Parallel()
	src := Config{"k": 1}
	cp := src.Clone()
	src["k"] = 2
	if got := cp.Int64Or("k", -1); got != 1 {
		t.Fatalf("clone observed mutation: %d", got)
	}
}
