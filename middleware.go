package mvix

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Middleware performs side effects by consuming the event stream of a Feature
// and producing new events. Events sent on the returned channel are published
// back onto the feature's bus. Apply must return promptly; the work happens in
// goroutines that stop when ctx ends. A nil channel means no output; otherwise
// the channel must be closed once ctx ends, and the feature does not finish
// stopping until it is.
//
// The events channel must be drained: under DropLatest a middleware that stops
// reading holds back every dispatch.
type Middleware[E any] interface {
	Apply(ctx context.Context, events <-chan E) <-chan E
}

// MiddlewareFunc adapts a plain function to Middleware.
type MiddlewareFunc[E any] func(ctx context.Context, events <-chan E) <-chan E

func (f MiddlewareFunc[E]) Apply(ctx context.Context, events <-chan E) <-chan E {
	return f(ctx, events)
}

// HandlerFunc processes a full event stream inside a Scope. Returning an error
// stops the whole middleware.
type HandlerFunc[E any] func(ctx context.Context, events <-chan E) error

// Scope is the setup surface of a Scoped middleware. Handlers registered
// during setup each receive every event; Send emits new ones.
type Scope[E any] struct {
	handlers []HandlerFunc[E]
	capacity int
	logger   Logger
	out      chan E
}

// Launch registers a handler over the full event stream. Only valid during
// setup.
func (s *Scope[E]) Launch(h HandlerFunc[E]) {
	s.handlers = append(s.handlers, h)
}

// SetLogger replaces the logger that reports handler failures.
func (s *Scope[E]) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetBufferCapacity sets how many events each handler may have queued before
// the middleware stops reading its input.
func (s *Scope[E]) SetBufferCapacity(n int) {
	if n > 0 {
		s.capacity = n
	}
}

// Send emits an event to the feature. It blocks until the feature takes it or
// ctx ends.
func (s *Scope[E]) Send(ctx context.Context, event E) error {
	select {
	case s.out <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type scoped[E any] struct {
	setup func(s *Scope[E])
}

// Scoped builds a Middleware from a setup function that registers handlers,
// typically with OnEvent and OnEventLatest:
//
//	m := mvix.Scoped(func(s *mvix.Scope[Event]) {
//		mvix.OnEvent(s, func(ctx context.Context, e Load) error {
//			data, err := fetch(ctx, e.ID)
//			if err != nil {
//				return s.Send(ctx, LoadFailed{Err: err})
//			}
//			return s.Send(ctx, Loaded{Data: data})
//		})
//	})
//
// A handler error or panic is logged and stops this middleware only.
func Scoped[E any](setup func(s *Scope[E])) Middleware[E] {
	return &scoped[E]{setup: setup}
}

func (m *scoped[E]) Apply(ctx context.Context, events <-chan E) <-chan E {
	s := &Scope[E]{
		capacity: DefaultBufferCapacity,
		logger:   defaultLogger(),
		out:      make(chan E),
	}
	m.setup(s)
	go s.run(ctx, events)
	return s.out
}

func (s *Scope[E]) run(ctx context.Context, events <-chan E) {
	defer close(s.out)

	g, gctx := errgroup.WithContext(ctx)
	fanout := NewBus[E](s.capacity, DropLatest)
	for _, h := range s.handlers {
		sub := fanout.Subscribe()
		g.Go(func() error {
			defer sub.Cancel()
			return guard(func() error {
				return h(gctx, sub.Chan(gctx))
			})
		})
	}
	g.Go(func() error {
		defer fanout.Close()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := fanout.Publish(gctx, event); err != nil {
					return nil
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		s.logger.Printf("mvix: middleware stopped: %v", err)
	}
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mvix: handler panic: %v", r)
		}
	}()
	return fn()
}

// OnEvent handles every event of type T, one at a time in arrival order.
// Events that arrive while a reaction runs are queued.
func OnEvent[T, E any](s *Scope[E], fn func(ctx context.Context, event T) error) {
	s.Launch(func(ctx context.Context, events <-chan E) error {
		for e := range events {
			t, ok := any(e).(T)
			if !ok {
				continue
			}
			if err := fn(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// OnEventLatest handles events of type T, cancelling the reaction to the
// previous one when a new one arrives. The cancelled reaction is awaited
// before the next starts, so reactions never overlap.
func OnEventLatest[T, E any](s *Scope[E], fn func(ctx context.Context, event T) error) {
	s.Launch(func(ctx context.Context, events <-chan E) error {
		var (
			cancel context.CancelFunc
			done   chan error
		)
		stop := func() error {
			if cancel == nil {
				return nil
			}
			cancel()
			err := <-done
			cancel, done = nil, nil
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		for {
			select {
			case err := <-done:
				cancel()
				cancel, done = nil, nil
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			case e, ok := <-events:
				if !ok {
					return stop()
				}
				t, match := any(e).(T)
				if !match {
					continue
				}
				if err := stop(); err != nil {
					return err
				}
				rctx, rcancel := context.WithCancel(ctx)
				ch := make(chan error, 1)
				cancel, done = rcancel, ch
				go func() {
					ch <- guard(func() error {
						return fn(rctx, t)
					})
				}()
			}
		}
	})
}
