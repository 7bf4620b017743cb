// Package benchmarks provides memory footprint benchmarks.
package benchmarks

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/comalice/mvix"
)

func BenchmarkMemoryFootprint(b *testing.B) {
	var processed atomic.Int64
	numFeatures := 1000
	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	features := make([]*mvix.Assembly[tick, board], numFeatures)
	for i := 0; i < numFeatures; i++ {
		features[i] = NewBenchFeature(&processed, 1)
	}
	runtime.GC()
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	bytesPerFeature := (after.TotalAlloc - before.TotalAlloc) / uint64(numFeatures)
	b.ReportMetric(float64(bytesPerFeature)/1024, "KB/feature")
	runtime.KeepAlive(features)
}

func BenchmarkMemoryBufferCapacity(b *testing.B) {
	for _, capacity := range []int{16, 256, 4096} {
		b.Run(fmt.Sprintf("capacity=%d", capacity), func(b *testing.B) {
			var processed atomic.Int64
			numFeatures := 100
			var before runtime.MemStats
			runtime.ReadMemStats(&before)
			features := make([]*mvix.Assembly[tick, board], numFeatures)
			for i := 0; i < numFeatures; i++ {
				features[i] = NewBenchFeature(&processed, 1, mvix.WithBufferCapacity[tick, board](capacity))
			}
			runtime.GC()
			var after runtime.MemStats
			runtime.ReadMemStats(&after)
			bytesPerFeature := (after.TotalAlloc - before.TotalAlloc) / uint64(numFeatures)
			b.ReportMetric(float64(bytesPerFeature)/1024, "KB/feature")
			runtime.KeepAlive(features)
		})
	}
}
