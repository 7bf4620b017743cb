package mvix

import (
	"context"
	"sync"
)

// View renders UI state.
type View[S any] interface {
	Render(state S)
}

// Tracker is implemented by views that only re-render when some fields of
// the state change.
type Tracker[S any] interface {
	TrackedState() []KeyFunc[S]
}

// RenderFunc adapts a plain function to View.
type RenderFunc[S any] func(state S)

func (f RenderFunc[S]) Render(state S) {
	f(state)
}

// HostView can be embedded by views that only host other views. Bind skips
// them.
type HostView[S any] struct{}

func (HostView[S]) Render(S) {}

func (HostView[S]) SkipRender() bool { return true }

type skipper interface {
	SkipRender() bool
}

// Bind renders every state of source on each view until ctx ends or the
// returned stop func is called. Each view runs in its own goroutine and sees
// states filtered by its tracked keys. stop waits for in-flight renders.
func Bind[S any](ctx context.Context, source Observable[S], views ...View[S]) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, v := range views {
		if sk, ok := v.(skipper); ok && sk.SkipRender() {
			continue
		}
		var keys []KeyFunc[S]
		if tr, ok := v.(Tracker[S]); ok {
			keys = tr.TrackedState()
		}
		states := DistinctByKeys(ctx, source.Subscribe(ctx), keys...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for state := range states {
				v.Render(state)
			}
		}()
	}
	return func() {
		cancel()
		wg.Wait()
	}
}
