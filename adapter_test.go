package mvix_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/comalice/mvix"
	"github.com/comalice/mvix/production"
	"github.com/comalice/mvix/testutil"
)

type command string

func parseCommand(c command) (event, bool) {
	switch c {
	case "inc":
		return increment{By: 1}, true
	case "double":
		return increment{By: 2}, true
	default:
		return nil, false
	}
}

type recordingCounter struct {
	feature  *mvix.Assembly[event, state]
	recorder *production.Recorder[event, state]
}

func newRecordingCounter() recordingCounter {
	rec := &production.Recorder[event, state]{}
	return recordingCounter{
		feature:  newCounter(mvix.WithPublisher[event, state](rec)),
		recorder: rec,
	}
}

func label(s state) string {
	return "count=" + strconv.Itoa(s.Count)
}

func TestAdapter_MapsEventsAndStates(t *testing.T) {
	inner := newCounter()
	outer := mvix.NewAdapter[command, string, event, state](inner, parseCommand, label)
	testutil.Launch[command, string](t, outer)

	if inner.Status() != mvix.Running {
		t.Fatalf("launching the adapter should launch the inner feature, got %v", inner.Status())
	}
	if !outer.Dispatch("inc") || !outer.Dispatch("double") {
		t.Fatal("mapped events should be accepted")
	}
	testutil.WaitForState[string](t, outer, func(s string) bool { return s == "count=3" })
	if got := outer.State(); got != "count=3" {
		t.Errorf("State() = %q", got)
	}
}

func TestAdapter_VetoedEventsAreNotForwarded(t *testing.T) {
	rec := newRecordingCounter()
	outer := mvix.NewAdapter[command, string, event, state](rec.feature, parseCommand, label)
	testutil.Launch[command, string](t, outer)

	if outer.Dispatch("unknown") {
		t.Error("vetoed event should report false")
	}
	outer.Dispatch("inc")
	testutil.WaitForState[string](t, outer, func(s string) bool { return s == "count=1" })
	testutil.Eventually(t, func() bool { return len(rec.recorder.Events()) == 1 })
	if diff := cmp.Diff([]event{increment{By: 1}}, rec.recorder.Events()); diff != "" {
		t.Errorf("forwarded events (-want +got):\n%s", diff)
	}
}

func TestAdapter_SharesLifecycle(t *testing.T) {
	inner := newCounter()
	outer := mvix.NewAdapter[command, string, event, state](inner, parseCommand, label)
	if outer.Status() != mvix.Idle {
		t.Fatalf("expected idle, got %v", outer.Status())
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := outer.Launch(ctx); err != nil {
		t.Fatalf("launch: %v", err)
	}
	cancel()
	testutil.Receive(t, outer.Done())
	if err := outer.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
	if outer.Status() != mvix.Stopped || inner.Status() != mvix.Stopped {
		t.Errorf("expected both stopped, got outer %v inner %v", outer.Status(), inner.Status())
	}
	if outer.Dispatch("inc") {
		t.Error("dispatch after stop should be rejected")
	}
}

// The same behaviour holds whether the feature is used directly or behind an
// identity adapter.
func TestFeature_IdentityAdapter(t *testing.T) {
	runtimes := map[string]func() mvix.Feature[event, state]{
		"assembly": func() mvix.Feature[event, state] { return newCounter() },
		"adapter":  func() mvix.Feature[event, state] { return testutil.Identity[event, state](newCounter()) },
	}
	for name, build := range runtimes {
		t.Run(name, func(t *testing.T) {
			f := build()
			testutil.Launch(t, f)
			for i := 0; i < 4; i++ {
				f.Dispatch(increment{By: 1})
			}
			testutil.WaitForState[state](t, f, func(s state) bool { return s.Count == 4 })
		})
	}
}
