package mvix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/comalice/mvix"

// Assembly is the standard Feature: an event bus, a reducer fold, a
// middleware chain and a state container.
//
// While running, two pipelines share the bus: events are folded through the
// reducer into the state, and every middleware gets its own view of the event
// stream whose output is published back onto the bus. All tasks belong to one
// errgroup bound to the launch context.
type Assembly[E, S any] struct {
	id          string
	reducer     Reducer[E, S]
	middlewares []Middleware[E]
	capacity    int
	overflow    Overflow
	logEvents   bool
	logger      Logger
	tracer      trace.Tracer
	persister   Persister[S]
	publisher   Publisher[E, S]

	state  *StateFlow[S]
	bus    *Bus[E]
	status atomic.Int32
	seq    uint64 // fold task only

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

var _ Feature[struct{}, struct{}] = (*Assembly[struct{}, struct{}])(nil)

// NewFeature assembles a feature in the Idle state.
func NewFeature[E, S any](reducer Reducer[E, S], initial S, opts ...Option[E, S]) *Assembly[E, S] {
	a := &Assembly[E, S]{
		id:       "feature",
		reducer:  reducer,
		capacity: DefaultBufferCapacity,
		overflow: DropOldest,
		logger:   defaultLogger(),
		tracer:   otel.Tracer(tracerName),
		state:    NewStateFlow(initial),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logEvents {
		a.reducer = LoggingReducer(a.reducer, a.logger)
	}
	a.bus = NewBus[E](a.capacity, a.overflow)
	return a
}

// ID returns the feature name.
func (a *Assembly[E, S]) ID() string {
	return a.id
}

// Launch moves the feature from Idle to Running. It restores the persisted
// snapshot first when a Persister is configured. The feature stops when ctx
// ends, when Stop is called, or when the reducer panics.
func (a *Assembly[E, S]) Launch(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if Status(a.status.Load()) != Idle {
		return ErrAlreadyLaunched
	}
	if a.persister != nil {
		if err := a.restore(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)

	// Subscribe everything before the first event can be accepted.
	fold := a.bus.Subscribe()
	inputs := make([]*Subscription[E], len(a.middlewares))
	for i := range a.middlewares {
		inputs[i] = a.bus.Subscribe()
	}

	g.Go(func() error {
		return a.fold(gctx, fold)
	})
	for i, m := range a.middlewares {
		g.Go(func() error {
			a.runMiddleware(gctx, i, m, inputs[i])
			return nil
		})
	}
	if a.persister != nil {
		g.Go(func() error {
			a.persist(gctx)
			return nil
		})
	}

	a.status.Store(int32(Running))
	go a.supervise(gctx, cancel, g)
	return nil
}

func (a *Assembly[E, S]) supervise(ctx context.Context, cancel context.CancelFunc, g *errgroup.Group) {
	<-ctx.Done()
	a.status.Store(int32(Stopped))
	a.bus.Close()
	err := g.Wait()
	cancel()
	if err != nil {
		a.logger.Printf("mvix: feature %q stopped: %v", a.id, err)
	}
	if a.persister != nil {
		// The persist task may have missed the last state while stopping.
		a.save(context.WithoutCancel(ctx), a.state.Value())
	}
	a.state.Close()
	a.err = err
	close(a.done)
}

// Stop cancels a running feature, or retires an idle one. Safe to call
// multiple times.
func (a *Assembly[E, S]) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
		return
	}
	if Status(a.status.Load()) == Idle {
		a.status.Store(int32(Stopped))
		a.bus.Close()
		a.state.Close()
		close(a.done)
	}
}

// Dispatch enqueues an event. It returns false when the feature is not
// running or the overflow policy rejects the event.
func (a *Assembly[E, S]) Dispatch(event E) bool {
	if Status(a.status.Load()) != Running {
		return false
	}
	return a.bus.TryPublish(event)
}

func (a *Assembly[E, S]) State() S {
	return a.state.Value()
}

func (a *Assembly[E, S]) Subscribe(ctx context.Context) <-chan S {
	return a.state.Subscribe(ctx)
}

func (a *Assembly[E, S]) Status() Status {
	return Status(a.status.Load())
}

func (a *Assembly[E, S]) Done() <-chan struct{} {
	return a.done
}

// Wait returns ErrNotRunning for a feature that was never launched.
func (a *Assembly[E, S]) Wait() error {
	if a.Status() == Idle {
		return ErrNotRunning
	}
	<-a.done
	return a.err
}

func (a *Assembly[E, S]) fold(ctx context.Context, sub *Subscription[E]) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		event, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := a.reduce(ctx, event); err != nil {
			return err
		}
	}
}

// reduce applies one event. A reducer panic is returned as a
// *ReducerPanicError, which cancels the whole feature.
func (a *Assembly[E, S]) reduce(ctx context.Context, event E) (err error) {
	ctx, span := a.tracer.Start(ctx, "mvix.reduce", trace.WithAttributes(
		attribute.String("mvix.feature", a.id),
		attribute.String("mvix.event", eventName(event)),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			perr := &ReducerPanicError{Value: r, Stack: debug.Stack()}
			span.RecordError(perr)
			span.SetStatus(codes.Error, perr.Error())
			err = perr
		}
	}()

	from := a.state.Value()
	to := a.reducer.Reduce(event, from)
	a.state.Set(to)
	a.seq++

	if a.publisher != nil {
		t := Transition[E, S]{
			FeatureID: a.id,
			Seq:       a.seq,
			Event:     event,
			From:      from,
			To:        to,
			At:        time.Now(),
		}
		if err := a.publisher.Publish(ctx, t); err != nil && ctx.Err() == nil {
			a.logger.Printf("mvix: feature %q: publish transition %d: %v", a.id, t.Seq, err)
		}
	}
	return nil
}

// runMiddleware feeds one middleware and re-publishes its output. A panic in
// Apply only ends this middleware.
func (a *Assembly[E, S]) runMiddleware(ctx context.Context, index int, m Middleware[E], sub *Subscription[E]) {
	defer sub.Cancel()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("mvix: feature %q: middleware %d panic: %v", a.id, index, r)
		}
	}()

	out := m.Apply(ctx, sub.Chan(ctx))
	if out == nil {
		<-ctx.Done()
		return
	}
	// Read until the middleware closes its output, so Stop waits for its
	// reactions to unwind. Events emitted while stopping are discarded.
	for event := range out {
		if ctx.Err() != nil {
			continue
		}
		if err := a.bus.Publish(ctx, event); err != nil && ctx.Err() == nil && !errors.Is(err, ErrClosed) {
			a.logger.Printf("mvix: feature %q: middleware %d: dropped %s: %v", a.id, index, eventName(event), err)
		}
	}
}

func (a *Assembly[E, S]) restore(ctx context.Context) error {
	snap, err := a.persister.Load(ctx, a.id)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore feature %q: %w", a.id, err)
	}
	a.state.Set(snap.State)
	return nil
}

func (a *Assembly[E, S]) persist(ctx context.Context) {
	for state := range a.state.Subscribe(ctx) {
		if ctx.Err() != nil {
			return
		}
		a.save(ctx, state)
	}
}

func (a *Assembly[E, S]) save(ctx context.Context, state S) {
	snap := Snapshot[S]{
		FeatureID: a.id,
		State:     state,
		Timestamp: time.Now().UTC(),
	}
	if err := a.persister.Save(ctx, snap); err != nil && ctx.Err() == nil {
		a.logger.Printf("mvix: feature %q: save snapshot: %v", a.id, err)
	}
}

func eventName(event any) string {
	return fmt.Sprintf("%T", event)
}
