// Package flow defines the surface between the dataflow host and the
// components it runs: messages, channels, the component lifecycle, typed
// configuration snapshots, and the router components emit through.
package flow

import (
	"context"
	"fmt"
)

// Message is an opaque payload travelling through the graph.
//
// ID is stamped by the router on first emission (when empty) so a payload
// can be traced across hops.
type Message struct {
	ID      string
	Payload any
}

// New wraps a payload in a Message.
func New(payload any) Message { return Message{Payload: payload} }

// Unit is the fixed empty signal emitted by time-driven components that
// have nothing to say beyond "now".
func Unit() Message { return Message{} }

// Well-known channel names.
const (
	ChannelUnit = "unit"
	ChannelTime = "time"
)

// Status of a component instance, set by host lifecycle calls and read by
// background tasks to detect they have been superseded.
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Component is one node of the graph.
//
// The host serializes Start/Stop/SetConfig with each other; Process may run
// concurrently with any of them and with other Process calls. All methods
// must leave internal state consistent on error (no partial task
// installation).
type Component interface {
	ID() string
	Kind() string
	Status() Status

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SetConfig(cfg Config) error

	// Process handles one inbound message from the named input channel.
	Process(ctx context.Context, channel string, msg Message) error
}

// Outlet is the host's routing sink. Implementations must be safe to call
// from many background tasks at once; a delivery failure is reported to the
// caller but must never poison the outlet for other callers.
type Outlet interface {
	Emit(node, channel string, msg Message) error
}

// ConfigError marks a configuration rejected at the call that introduced
// it. It is never partially applied.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config %q: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BadConfig wraps err as a ConfigError for key.
func BadConfig(key string, err error) error {
	return &ConfigError{Key: key, Err: err}
}

func BadConfigf(key, format string, args ...any) error {
	return &ConfigError{Key: key, Err: fmt.Errorf(format, args...)}
}
