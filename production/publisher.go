package production

import (
	"context"
	"sync"

	"github.com/comalice/mvix"
)

// ChannelPublisher forwards transitions to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher[E, S any] struct {
	mu     sync.RWMutex
	ch     chan mvix.Transition[E, S]
	closed bool
}

// NewChannelPublisher creates a ChannelPublisher with a buffer of size.
func NewChannelPublisher[E, S any](size int) *ChannelPublisher[E, S] {
	return &ChannelPublisher[E, S]{ch: make(chan mvix.Transition[E, S], size)}
}

// C returns the transition stream. It is closed by Close.
func (p *ChannelPublisher[E, S]) C() <-chan mvix.Transition[E, S] {
	return p.ch
}

func (p *ChannelPublisher[E, S]) Publish(ctx context.Context, t mvix.Transition[E, S]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return mvix.ErrClosed
	}
	select {
	case p.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil // Non-blocking drop
	}
}

func (p *ChannelPublisher[E, S]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// Recorder keeps every transition in memory, for replays and tests.
type Recorder[E, S any] struct {
	mu          sync.Mutex
	transitions []mvix.Transition[E, S]
}

func (r *Recorder[E, S]) Publish(ctx context.Context, t mvix.Transition[E, S]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

// Transitions returns a copy of everything recorded so far.
func (r *Recorder[E, S]) Transitions() []mvix.Transition[E, S] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mvix.Transition[E, S](nil), r.transitions...)
}

// Events returns the recorded events in order.
func (r *Recorder[E, S]) Events() []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]E, len(r.transitions))
	for i, t := range r.transitions {
		events[i] = t.Event
	}
	return events
}

// Replay folds the recorded events through reducer starting from initial.
// The result equals the last recorded To state when reducer is pure.
func Replay[E, S any](reducer mvix.Reducer[E, S], initial S, events []E) S {
	state := initial
	for _, e := range events {
		state = reducer.Reduce(e, state)
	}
	return state
}
