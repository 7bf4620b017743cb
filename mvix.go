package mvix

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	ErrClosed          = errors.New("mvix: closed")
	ErrAlreadyLaunched = errors.New("mvix: feature already launched")
	ErrNotRunning      = errors.New("mvix: feature not running")
)

// Status is the lifecycle state of a Feature.
type Status int32

const (
	Idle Status = iota
	Running
	Stopped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Reducer returns the new state for an event applied to the current state.
// Implementations must be pure.
type Reducer[E, S any] interface {
	Reduce(event E, state S) S
}

// ReducerFunc adapts a plain function to Reducer.
type ReducerFunc[E, S any] func(event E, state S) S

func (f ReducerFunc[E, S]) Reduce(event E, state S) S {
	return f(event, state)
}

// Observable is a source of state values with replay-latest semantics.
type Observable[S any] interface {
	// Subscribe delivers the current value, then subsequent values, until
	// ctx ends or the source stops. Intermediate values may be skipped.
	Subscribe(ctx context.Context) <-chan S
}

// Feature is a self-contained unit combining an event bus, a reducer,
// middleware and a state container.
type Feature[E, S any] interface {
	Observable[S]

	// Launch starts event processing. The feature stops when ctx ends.
	Launch(ctx context.Context) error

	// Dispatch enqueues an event and reports whether it was accepted.
	Dispatch(event E) bool

	// State returns the latest state.
	State() S

	Status() Status

	// Done is closed once the feature has stopped.
	Done() <-chan struct{}

	// Wait blocks until the feature stops and returns the error that ended
	// it, if any. Context cancellation is not an error.
	Wait() error
}

// Logger is the logging surface used by the library.
type Logger interface {
	Printf(format string, v ...any)
}

func defaultLogger() Logger {
	return log.Default()
}

// ReducerPanicError reports a panic raised inside Reduce.
type ReducerPanicError struct {
	Value any
	Stack []byte
}

func (e *ReducerPanicError) Error() string {
	return fmt.Sprintf("mvix: reducer panic: %v", e.Value)
}
