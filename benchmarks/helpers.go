// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/mvix"
)

// tick is the only event the benchmark features understand.
type tick struct{ N int }

// board is a state with a configurable number of fields, so the cost of
// copying and encoding it can be measured.
type board struct {
	Ticks  int            `json:"ticks" yaml:"ticks"`
	Fields map[string]int `json:"fields" yaml:"fields"`
}

// GenBoard creates a board with n fields.
func GenBoard(n int) board {
	b := board{Fields: make(map[string]int, n)}
	for i := 0; i < n; i++ {
		b.Fields[fmt.Sprintf("f%d", i)] = i
	}
	return b
}

// countingReducer increments processed for every reduced event.
func countingReducer(processed *atomic.Int64) mvix.Reducer[tick, board] {
	return mvix.ReducerFunc[tick, board](func(e tick, s board) board {
		processed.Add(1)
		s.Ticks++
		return s
	})
}

// NewBenchFeature builds an idle feature over a board with n fields.
func NewBenchFeature(processed *atomic.Int64, n int, opts ...mvix.Option[tick, board]) *mvix.Assembly[tick, board] {
	return mvix.NewFeature[tick, board](countingReducer(processed), GenBoard(n), opts...)
}

// waitProcessed spins until processed reaches want.
func waitProcessed(b *testing.B, processed *atomic.Int64, want int64) {
	b.Helper()
	timeout := time.After(30 * time.Second)
	for processed.Load() < want {
		select {
		case <-timeout:
			b.Fatalf("timeout waiting for processing, processed: %d / %d", processed.Load(), want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// GenSnapshotYAML generates YAML bytes for a snapshot of a board with n fields.
func GenSnapshotYAML(n int) []byte {
	snap := mvix.Snapshot[board]{
		FeatureID: fmt.Sprintf("board_%d", n),
		State:     GenBoard(n),
		Timestamp: time.Now(),
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		panic(err)
	}
	return data
}
