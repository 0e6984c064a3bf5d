package flow

import (
	"strconv"
)

// Config is an immutable snapshot of one node's settings.
//
// Snapshots are replaced wholesale on reconfiguration, never mutated in
// place; accessors tolerate the loose typing YAML decoding produces
// (int vs int64 vs float64).
type Config map[string]any

// Clone returns a shallow copy; callers hand the copy out so later edits to
// the source map cannot leak into a running component.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	cp := make(Config, len(c))
	for k, v := range c {
		cp[k] = v
	}
	return cp
}

func (c Config) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (c Config) StringOr(key, def string) string {
	if s, ok := c.String(key); ok {
		return s
	}
	return def
}

func (c Config) Int64(key string) (int64, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func (c Config) Int64Or(key string, def int64) int64 {
	if n, ok := c.Int64(key); ok {
		return n
	}
	return def
}

func (c Config) Bool(key string) (bool, bool) {
	v, ok := c[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (c Config) BoolOr(key string, def bool) bool {
	if b, ok := c.Bool(key); ok {
		return b
	}
	return def
}

// WithDefaults returns c overlaid on the definition's defaults: every key
// absent from c takes the default entry's value.
func (c Config) WithDefaults(defs []ConfigEntry) Config {
	out := make(Config, len(defs)+len(c))
	for _, e := range defs {
		if e.Default != nil {
			out[e.Key] = e.Default
		}
	}
	for k, v := range c {
		out[k] = v
	}
	return out
}
