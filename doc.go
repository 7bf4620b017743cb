// Package mvix implements a unidirectional data flow (MVI) pipeline for UI
// state.
//
// Events are dispatched into a Feature. The Feature folds every event through a
// Reducer to produce the next state, and hands the same event stream to its
// Middleware, which perform side effects and may emit new events back into the
// Feature. State is observable with replay-latest semantics.
//
// # Example Usage
//
//	f := mvix.NewFeature[CounterEvent, CounterState](
//		mvix.ReducerFunc[CounterEvent, CounterState](reduce),
//		CounterState{},
//		mvix.WithMiddleware[CounterEvent, CounterState](autoSave),
//	)
//	if err := f.Launch(ctx); err != nil {
//		return err
//	}
//	f.Dispatch(Increment{})
//	stop := mvix.Bind[CounterState](ctx, f, counterView)
//	defer stop()
//
// # Lifecycle
//
// A Feature is Idle until Launch, Running until the launch context ends (or
// Stop is called, or the reducer panics), and Stopped afterwards. Dispatch
// reports false outside Running and never panics.
//
// # Ordering Guarantees
//
//  1. Reduce calls are strictly sequential; call N+1 sees the state from call N.
//  2. The reducer observes events in bus order.
//  3. Events emitted by one middleware keep their emission order.
//  4. There is no order between events from different middleware.
//
// # Backpressure
//
// The event bus holds DefaultBufferCapacity events per subscriber. Under the
// default DropOldest policy a burst larger than that silently loses its oldest
// events; Dispatch keeps returning true. Observers of state are conflated: a
// slow observer sees the latest state, never a backlog.
package mvix
