package extensibility_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/comalice/mvix"
	"github.com/comalice/mvix/extensibility"
	"github.com/comalice/mvix/testutil"
)

type reading struct {
	Sensor string
	Value  int
}

type dashboard struct {
	Last  map[string]int
	Ticks int
}

func reduce(e any, s dashboard) dashboard {
	switch e := e.(type) {
	case reading:
		last := make(map[string]int, len(s.Last)+1)
		for k, v := range s.Last {
			last[k] = v
		}
		last[e.Sensor] = e.Value
		s.Last = last
	case time.Time:
		s.Ticks++
	}
	return s
}

func newDashboard(ms ...mvix.Middleware[any]) *mvix.Assembly[any, dashboard] {
	return mvix.NewFeature[any, dashboard](
		mvix.ReducerFunc[any, dashboard](reduce),
		dashboard{},
		mvix.WithMiddleware[any, dashboard](ms...),
	)
}

type syncLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *syncLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *syncLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

func TestSource_FeedsExternalEvents(t *testing.T) {
	readings := make(chan any)
	f := newDashboard(extensibility.Source[any](readings))
	testutil.Launch[any, dashboard](t, f)

	readings <- reading{Sensor: "kitchen", Value: 21}
	readings <- reading{Sensor: "cellar", Value: 12}
	got := testutil.WaitForState[dashboard](t, f, func(s dashboard) bool { return len(s.Last) == 2 })
	if got.Last["kitchen"] != 21 || got.Last["cellar"] != 12 {
		t.Errorf("unexpected readings: %+v", got.Last)
	}

	close(readings)
	if !f.Dispatch(reading{Sensor: "attic", Value: 18}) {
		t.Error("feature should keep running after the source closes")
	}
	testutil.WaitForState[dashboard](t, f, func(s dashboard) bool { return s.Last["attic"] == 18 })
}

func TestTicker_EmitsPeriodically(t *testing.T) {
	f := newDashboard(extensibility.Ticker[any](5*time.Millisecond, func(t time.Time) any { return t }))
	testutil.Launch[any, dashboard](t, f)

	testutil.WaitForState[dashboard](t, f, func(s dashboard) bool { return s.Ticks >= 3 })
}

func TestTicker_RejectsNonPositiveInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Ticker(%v) should panic", d)
				}
			}()
			extensibility.Ticker[any](d, func(t time.Time) any { return t })
		}()
	}
}

func TestLogging_SeesDispatchedAndEmittedEvents(t *testing.T) {
	logger := &syncLogger{}
	readings := make(chan any, 1)
	f := newDashboard(extensibility.Logging[any](logger), extensibility.Source[any](readings))
	testutil.Launch[any, dashboard](t, f)

	f.Dispatch(reading{Sensor: "porch", Value: 3})
	readings <- reading{Sensor: "garage", Value: 9}

	testutil.Eventually(t, func() bool {
		return logger.contains("porch") && logger.contains("garage")
	})
	if !logger.contains("extensibility_test.reading") {
		t.Error("expected the event type in the log line")
	}
}
