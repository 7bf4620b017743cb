package mvix

import (
	"context"
	"sync"
)

// StateFlow holds a current value and notifies subscribers of changes.
// Subscribers are conflated: they always receive the latest value, never a
// backlog. Safe for concurrent use.
type StateFlow[S any] struct {
	mu      sync.Mutex
	value   S
	version uint64
	changed chan struct{}
	closed  bool
}

func NewStateFlow[S any](initial S) *StateFlow[S] {
	return &StateFlow[S]{
		value:   initial,
		changed: make(chan struct{}),
	}
}

// Value returns the current value.
func (f *StateFlow[S]) Value() S {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set replaces the current value.
func (f *StateFlow[S]) Set(value S) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	f.notifyLocked()
}

// Update atomically replaces the current value with fn applied to it and
// returns the result. fn must not call back into f.
func (f *StateFlow[S]) Update(fn func(S) S) S {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = fn(f.value)
	f.notifyLocked()
	return f.value
}

func (f *StateFlow[S]) notifyLocked() {
	f.version++
	if f.closed {
		return
	}
	close(f.changed)
	f.changed = make(chan struct{})
}

// Close ends all subscriptions after they have received the final value.
// Value, Set and Update keep working.
func (f *StateFlow[S]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.changed)
}

// Subscribe delivers the current value and then every subsequent value it
// can keep up with. The channel is closed when ctx ends or after Close.
func (f *StateFlow[S]) Subscribe(ctx context.Context) <-chan S {
	out := make(chan S)
	go func() {
		defer close(out)
		var sent uint64
		first := true
		for {
			f.mu.Lock()
			value, version, changed, closed := f.value, f.version, f.changed, f.closed
			f.mu.Unlock()

			if first || version != sent {
				if closed {
					select {
					case out <- value:
					case <-ctx.Done():
						return
					}
					return
				}
				select {
				case out <- value:
					first, sent = false, version
				case <-changed:
					// A newer value replaced this one before it was taken.
				case <-ctx.Done():
					return
				}
				continue
			}
			if closed {
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
