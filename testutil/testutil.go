// Package testutil provides helpers for testing mvix features.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/mvix"
)

// DefaultTimeout bounds every wait in this package unless stated otherwise.
const DefaultTimeout = 2 * time.Second

// Launch starts f for the duration of the test. On cleanup the feature is
// stopped and awaited.
func Launch[E, S any](t testing.TB, f mvix.Feature[E, S]) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.Launch(ctx); err != nil {
		cancel()
		t.Fatalf("launch: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		select {
		case <-f.Done():
		case <-time.After(DefaultTimeout):
			t.Errorf("feature did not stop within %v", DefaultTimeout)
		}
	})
	return cancel
}

// WaitForState blocks until source emits a state satisfying pred and returns
// it. It fails the test after DefaultTimeout.
func WaitForState[S any](t testing.TB, source mvix.Observable[S], pred func(S) bool) S {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	var last S
	for s := range source.Subscribe(ctx) {
		if pred(s) {
			return s
		}
		last = s
	}
	t.Fatalf("state condition not met within %v; last state: %+v", DefaultTimeout, last)
	return last
}

// Eventually polls cond until it holds, failing the test after
// DefaultTimeout.
func Eventually(t testing.TB, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(DefaultTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", DefaultTimeout)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Receive takes one value from ch, failing the test after DefaultTimeout.
func Receive[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(DefaultTimeout):
		t.Fatalf("nothing received within %v", DefaultTimeout)
	}
	var zero T
	return zero
}

// Identity wraps f in an Adapter that maps nothing, so a suite can run
// against both Feature implementations.
func Identity[E, S any](f mvix.Feature[E, S]) mvix.Feature[E, S] {
	return mvix.NewAdapter[E, S, E, S](f,
		func(e E) (E, bool) { return e, true },
		func(s S) S { return s },
	)
}
