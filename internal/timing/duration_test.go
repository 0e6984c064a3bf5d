package timing

import (
	"testing"
	"time"
)

func TestParseDurationValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"2s", 2 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"1m", time.Minute},
		{"1h", time.Hour},
		{"1d", 24 * time.Hour},
		{"5", 5 * time.Second},
		{" 10s ", 10 * time.Second},
		{"100MS", 100 * time.Millisecond},
		// floor, never zero
		{"0", MinDuration},
		{"1ms", MinDuration},
		{"0ms", MinDuration},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDuration(tt.raw)
			if err != nil {
				t.Fatalf("ParseDuration(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDuration(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDurationInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "abc", "-5s", "-5", "10x", "1.5s", "s", "10 s"} {
		if _, err := ParseDuration(raw); err == nil {
			t.Errorf("ParseDuration(%q): expected error", raw)
		}
	}
}

func TestParseDurationMS(t *testing.T) {
	t.Parallel()
	if _, err := ParseDurationMS(-1); err == nil {
		t.Fatal("expected error for negative input")
	}
	got, err := ParseDurationMS(1000)
	if err != nil {
		t.Fatalf("ParseDurationMS(1000) error: %v", err)
	}
	if got != time.Second {
		t.Fatalf("ParseDurationMS(1000) = %v", got)
	}
	got, err = ParseDurationMS(1)
	if err != nil {
		t.Fatalf("ParseDurationMS(1) error: %v", err)
	}
	if got != MinDuration {
		t.Fatalf("ParseDurationMS(1) = %v, want floor %v", got, MinDuration)
	}
}
