package mvix

import "go.opentelemetry.io/otel/trace"

// Option configures an Assembly via the functional options pattern.
type Option[E, S any] func(*Assembly[E, S])

// WithMiddleware appends middleware. Each one sees the full event stream.
func WithMiddleware[E, S any](ms ...Middleware[E]) Option[E, S] {
	return func(a *Assembly[E, S]) {
		a.middlewares = append(a.middlewares, ms...)
	}
}

// WithID names the feature in logs, spans and snapshots.
func WithID[E, S any](id string) Option[E, S] {
	return func(a *Assembly[E, S]) {
		a.id = id
	}
}

// WithBufferCapacity sets the per-subscriber event buffer size.
func WithBufferCapacity[E, S any](n int) Option[E, S] {
	return func(a *Assembly[E, S]) {
		a.capacity = n
	}
}

// WithOverflow sets the event bus overflow policy.
func WithOverflow[E, S any](o Overflow) Option[E, S] {
	return func(a *Assembly[E, S]) {
		a.overflow = o
	}
}

// WithConfig applies every field of cfg. Later options override it.
func WithConfig[E, S any](cfg Config) Option[E, S] {
	return func(a *Assembly[E, S]) {
		if cfg.ID != "" {
			a.id = cfg.ID
		}
		a.capacity = cfg.BufferCapacity
		a.overflow = cfg.Overflow
		a.logEvents = cfg.LogEvents
	}
}

// WithLogger replaces the default log.Default() logger.
func WithLogger[E, S any](l Logger) Option[E, S] {
	return func(a *Assembly[E, S]) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTracer replaces the global otel tracer used for reduce spans.
func WithTracer[E, S any](t trace.Tracer) Option[E, S] {
	return func(a *Assembly[E, S]) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithPersister restores the last snapshot on Launch and saves every
// observed state while running.
func WithPersister[E, S any](p Persister[S]) Option[E, S] {
	return func(a *Assembly[E, S]) {
		a.persister = p
	}
}

// WithPublisher reports every transition to p.
func WithPublisher[E, S any](p Publisher[E, S]) Option[E, S] {
	return func(a *Assembly[E, S]) {
		a.publisher = p
	}
}
