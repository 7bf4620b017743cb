package mvix

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DefaultBufferCapacity is the number of undelivered events each subscriber
// of a Bus may hold.
const DefaultBufferCapacity = 16

// Overflow selects what a Bus does when a subscriber's buffer is full.
type Overflow int

const (
	// DropOldest evicts the oldest buffered event. Publishing never fails.
	DropOldest Overflow = iota
	// DropLatest rejects the new event for every subscriber.
	DropLatest
)

func (o Overflow) String() string {
	switch o {
	case DropOldest:
		return "drop_oldest"
	case DropLatest:
		return "drop_latest"
	default:
		return fmt.Sprintf("Overflow(%d)", int(o))
	}
}

// ParseOverflow parses the names returned by Overflow.String.
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop_oldest", "":
		return DropOldest, nil
	case "drop_latest":
		return DropLatest, nil
	default:
		return DropOldest, fmt.Errorf("unknown overflow policy %q", s)
	}
}

func (o Overflow) MarshalText() ([]byte, error) {
	if o != DropOldest && o != DropLatest {
		return nil, fmt.Errorf("unknown overflow policy %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *Overflow) UnmarshalText(text []byte) error {
	v, err := ParseOverflow(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Bus multicasts events to its subscribers. Every subscriber has a fixed size
// ring buffer, so a slow subscriber never blocks publishers under DropOldest.
// Safe for concurrent use.
type Bus[E any] struct {
	mu       sync.Mutex
	capacity int
	overflow Overflow
	subs     []*Subscription[E]
	closed   bool
	space    chan struct{} // closed and replaced whenever a full ring frees a slot
}

// NewBus creates a Bus. A non-positive capacity means DefaultBufferCapacity.
func NewBus[E any](capacity int, overflow Overflow) *Bus[E] {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Bus[E]{
		capacity: capacity,
		overflow: overflow,
		space:    make(chan struct{}),
	}
}

// Subscribe registers a subscriber that receives every event published from
// now on.
func (b *Bus[E]) Subscribe() *Subscription[E] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription[E]{
		bus:   b,
		buf:   make([]E, b.capacity),
		ready: make(chan struct{}, 1),
	}
	b.subs = append(b.subs, s)
	return s
}

// TryPublish offers an event to all subscribers without blocking. It returns
// false when the bus is closed, or when the policy is DropLatest and some
// subscriber is full.
func (b *Bus[E]) TryPublish(event E) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.publishLocked(event)
}

// Publish is TryPublish that waits for room under DropLatest instead of
// failing.
func (b *Bus[E]) Publish(ctx context.Context, event E) error {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return ErrClosed
		}
		if b.publishLocked(event) {
			b.mu.Unlock()
			return nil
		}
		space := b.space
		b.mu.Unlock()

		select {
		case <-space:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bus[E]) publishLocked(event E) bool {
	if b.closed {
		return false
	}
	if b.overflow == DropLatest {
		for _, s := range b.subs {
			if s.full() {
				return false
			}
		}
	}
	for _, s := range b.subs {
		s.push(event)
	}
	return true
}

// Close stops accepting events. Subscribers still drain what they hold.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.space)
	for _, s := range b.subs {
		s.wake()
	}
}

// Closed reports whether Close has been called.
func (b *Bus[E]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Bus[E]) signalSpaceLocked() {
	if b.closed {
		return
	}
	close(b.space)
	b.space = make(chan struct{})
}

// Subscription is one reader of a Bus. Next must not be called concurrently
// from several goroutines.
type Subscription[E any] struct {
	bus       *Bus[E]
	buf       []E
	head      int
	n         int
	cancelled bool
	ready     chan struct{}
}

func (s *Subscription[E]) full() bool {
	return !s.cancelled && s.n == len(s.buf)
}

func (s *Subscription[E]) push(event E) {
	if s.cancelled {
		return
	}
	if s.n == len(s.buf) {
		var zero E
		s.buf[s.head] = zero
		s.head = (s.head + 1) % len(s.buf)
		s.n--
	}
	s.buf[(s.head+s.n)%len(s.buf)] = event
	s.n++
	s.wake()
}

func (s *Subscription[E]) pop() E {
	var zero E
	event := s.buf[s.head]
	s.buf[s.head] = zero
	s.head = (s.head + 1) % len(s.buf)
	s.n--
	return event
}

func (s *Subscription[E]) wake() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next returns the oldest buffered event, blocking until one is available.
// It returns ErrClosed once the bus is closed and the buffer is drained, or
// after Cancel.
func (s *Subscription[E]) Next(ctx context.Context) (E, error) {
	b := s.bus
	for {
		b.mu.Lock()
		if s.cancelled {
			b.mu.Unlock()
			var zero E
			return zero, ErrClosed
		}
		if s.n > 0 {
			wasFull := s.n == len(s.buf)
			event := s.pop()
			if wasFull {
				b.signalSpaceLocked()
			}
			b.mu.Unlock()
			return event, nil
		}
		if b.closed {
			b.mu.Unlock()
			var zero E
			return zero, ErrClosed
		}
		b.mu.Unlock()

		select {
		case <-s.ready:
		case <-ctx.Done():
			var zero E
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of buffered events.
func (s *Subscription[E]) Len() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.n
}

// Cancel detaches the subscription. Buffered events are discarded.
func (s *Subscription[E]) Cancel() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.cancelled {
		return
	}
	wasFull := s.n == len(s.buf)
	s.cancelled = true
	s.buf, s.head, s.n = nil, 0, 0
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	if wasFull {
		b.signalSpaceLocked()
	}
	s.wake()
}

// Chan pumps the subscription into an unbuffered channel. The channel is
// closed when ctx ends or Next returns ErrClosed.
func (s *Subscription[E]) Chan(ctx context.Context) <-chan E {
	out := make(chan E)
	go func() {
		defer close(out)
		for {
			event, err := s.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
