package mvix

import (
	"context"
	"sync"
)

// Effects is a queue of one-shot side effects for a view, such as a toast or
// a navigation request. Each effect is received exactly once.
type Effects[F any] struct {
	mu     sync.RWMutex
	ch     chan F
	closed bool
}

// NewEffects creates a queue holding up to capacity pending effects. A
// non-positive capacity means DefaultBufferCapacity.
func NewEffects[F any](capacity int) *Effects[F] {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Effects[F]{ch: make(chan F, capacity)}
}

// Send queues an effect without blocking. It returns false when the queue is
// full or closed.
func (e *Effects[F]) Send(effect F) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	select {
	case e.ch <- effect:
		return true
	default:
		return false
	}
}

// Receive takes the next effect, blocking until one is queued. It returns
// ErrClosed once the queue is closed and empty.
func (e *Effects[F]) Receive(ctx context.Context) (F, error) {
	select {
	case effect, ok := <-e.ch:
		if !ok {
			var zero F
			return zero, ErrClosed
		}
		return effect, nil
	case <-ctx.Done():
		var zero F
		return zero, ctx.Err()
	}
}

// C exposes the queue for select loops. It is closed by Close.
func (e *Effects[F]) C() <-chan F {
	return e.ch
}

func (e *Effects[F]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}
