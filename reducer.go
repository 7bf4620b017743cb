package mvix

import "time"

// loggingReducer wraps a Reducer and logs every event it applies.
type loggingReducer[E, S any] struct {
	inner  Reducer[E, S]
	logger Logger
}

// LoggingReducer returns a Reducer that logs each event and how long the
// inner reducer took.
func LoggingReducer[E, S any](inner Reducer[E, S], logger Logger) Reducer[E, S] {
	if logger == nil {
		logger = defaultLogger()
	}
	return &loggingReducer[E, S]{inner: inner, logger: logger}
}

func (r *loggingReducer[E, S]) Reduce(event E, state S) S {
	start := time.Now()
	next := r.inner.Reduce(event, state)
	r.logger.Printf("mvix: reduced %s in %v", eventName(event), time.Since(start))
	return next
}
