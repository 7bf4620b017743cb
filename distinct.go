package mvix

import (
	"context"
	"reflect"
)

// KeyFunc extracts one render-relevant field from a state.
type KeyFunc[S any] func(S) any

// KeyTracker remembers the keys of the last accepted state. Not safe for
// concurrent use.
type KeyTracker[S any] struct {
	keys []KeyFunc[S]
	prev []any
	seen bool
}

func NewKeyTracker[S any](keys ...KeyFunc[S]) *KeyTracker[S] {
	return &KeyTracker[S]{keys: keys}
}

// Changed reports whether state should be emitted: always for the first
// state and with no keys, otherwise only if some key differs from the last
// accepted state. Keys are compared with reflect.DeepEqual.
func (t *KeyTracker[S]) Changed(state S) bool {
	if len(t.keys) == 0 {
		return true
	}
	cur := make([]any, len(t.keys))
	for i, key := range t.keys {
		cur[i] = key(state)
	}
	if t.seen && keysEqual(cur, t.prev) {
		return false
	}
	t.prev, t.seen = cur, true
	return true
}

func keysEqual(a, b []any) bool {
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// DistinctByKeys drops states whose keys equal those of the previously
// emitted state. With no keys it returns in unchanged.
func DistinctByKeys[S any](ctx context.Context, in <-chan S, keys ...KeyFunc[S]) <-chan S {
	if len(keys) == 0 {
		return in
	}
	out := make(chan S)
	go func() {
		defer close(out)
		tracker := NewKeyTracker(keys...)
		for {
			select {
			case state, ok := <-in:
				if !ok {
					return
				}
				if !tracker.Changed(state) {
					continue
				}
				select {
				case out <- state:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
