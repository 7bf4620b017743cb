package mvix

import "context"

// EventMapper translates an outer event into the wrapped feature's event.
// Returning false vetoes the event.
type EventMapper[From, To any] func(From) (To, bool)

// StateMapper translates the wrapped feature's state. It must be pure.
type StateMapper[From, To any] func(From) To

// Adapter presents a Feature[IE, IS] as a Feature[OE, OS]. Lifecycle and the
// state sequence belong to the wrapped feature; the adapter only translates
// at the boundary.
type Adapter[OE, OS, IE, IS any] struct {
	inner       Feature[IE, IS]
	eventMapper EventMapper[OE, IE]
	stateMapper StateMapper[IS, OS]
}

var _ Feature[int, int] = (*Adapter[int, int, string, string])(nil)

func NewAdapter[OE, OS, IE, IS any](inner Feature[IE, IS], events EventMapper[OE, IE], states StateMapper[IS, OS]) *Adapter[OE, OS, IE, IS] {
	return &Adapter[OE, OS, IE, IS]{
		inner:       inner,
		eventMapper: events,
		stateMapper: states,
	}
}

func (a *Adapter[OE, OS, IE, IS]) Launch(ctx context.Context) error {
	return a.inner.Launch(ctx)
}

// Dispatch maps and forwards the event. Vetoed events are not forwarded and
// report false.
func (a *Adapter[OE, OS, IE, IS]) Dispatch(event OE) bool {
	mapped, ok := a.eventMapper(event)
	if !ok {
		return false
	}
	return a.inner.Dispatch(mapped)
}

func (a *Adapter[OE, OS, IE, IS]) State() OS {
	return a.stateMapper(a.inner.State())
}

func (a *Adapter[OE, OS, IE, IS]) Subscribe(ctx context.Context) <-chan OS {
	in := a.inner.Subscribe(ctx)
	out := make(chan OS)
	go func() {
		defer close(out)
		for s := range in {
			select {
			case out <- a.stateMapper(s):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (a *Adapter[OE, OS, IE, IS]) Status() Status {
	return a.inner.Status()
}

func (a *Adapter[OE, OS, IE, IS]) Done() <-chan struct{} {
	return a.inner.Done()
}

func (a *Adapter[OE, OS, IE, IS]) Wait() error {
	return a.inner.Wait()
}
