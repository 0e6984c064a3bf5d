package flow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	logx "timeflow/pkg/logx"
)

// Emission is one message leaving a node through a named output channel.
type Emission struct {
	Node    string
	Channel string
	Msg     Message
	Time    time.Time
}

// Router is the in-memory routing surface components emit through.
//
// Contract:
//   - Emit MUST be non-blocking and safe from any goroutine.
//   - Subscribers get buffered channels; slow subscribers drop emissions
//     (bounded backpressure), which is logged at a capped rate.
type Router struct {
	log logx.Logger

	mu   sync.RWMutex
	subs map[uint64]chan Emission
	seq  uint64

	// dropLogLimit keeps a misbehaving subscriber from flooding the log.
	dropLogLimit *rate.Limiter
}

func NewRouter(log logx.Logger) *Router {
	return &Router{
		log:          log,
		subs:         map[uint64]chan Emission{},
		dropLogLimit: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Emit implements Outlet. It stamps a message ID when absent, fans the
// emission out to all subscribers, and never blocks.
func (r *Router) Emit(node, channel string, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	e := Emission{Node: node, Channel: channel, Msg: msg, Time: time.Now()}

	// Snapshot subscribers so Emit doesn't hold locks while attempting sends.
	r.mu.RLock()
	chs := make([]chan Emission, 0, len(r.subs))
	for _, ch := range r.subs {
		chs = append(chs, ch)
	}
	r.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If a subscriber unsubscribes concurrently
		// and the channel closes, recover from the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
				if r.dropLogLimit.Allow() && !r.log.IsZero() {
					r.log.Warn("emission dropped (subscriber slow)",
						logx.String("node", node),
						logx.String("channel", channel))
				}
			}
		}()
	}
	return nil
}

func (r *Router) Subscribe(buffer int) (<-chan Emission, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Emission, buffer)

	r.mu.Lock()
	r.seq++
	id := r.seq
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			// Closing is safe because Emit recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
