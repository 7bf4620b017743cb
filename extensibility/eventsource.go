// Package extensibility provides reusable middleware for mvix features.
package extensibility

import (
	"context"
	"fmt"
	"time"

	"github.com/comalice/mvix"
)

// drain discards the feature's events so this middleware never holds back
// the bus.
func drain[E any](events <-chan E) {
	go func() {
		for range events {
		}
	}()
}

// Source is a middleware that feeds events from an external channel into the
// feature, e.g. push notifications or sensor readings. It stops when ch is
// closed or the feature stops.
func Source[E any](ch <-chan E) mvix.Middleware[E] {
	return mvix.MiddlewareFunc[E](func(ctx context.Context, events <-chan E) <-chan E {
		drain(events)
		out := make(chan E)
		go func() {
			defer close(out)
			for {
				select {
				case e, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- e:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
}

// Ticker is a middleware that emits newEvent(t) every d while the feature
// runs. Useful for clocks, polling and timeouts. Like time.NewTicker, it
// panics if d is not positive.
func Ticker[E any](d time.Duration, newEvent func(t time.Time) E) mvix.Middleware[E] {
	if d <= 0 {
		panic(fmt.Sprintf("extensibility: non-positive Ticker interval %v", d))
	}
	return mvix.MiddlewareFunc[E](func(ctx context.Context, events <-chan E) <-chan E {
		drain(events)
		out := make(chan E)
		go func() {
			defer close(out)
			ticker := time.NewTicker(d)
			defer ticker.Stop()
			for {
				select {
				case t := <-ticker.C:
					select {
					case out <- newEvent(t):
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return out
	})
}
