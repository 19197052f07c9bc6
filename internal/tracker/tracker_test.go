package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/deskwatch/internal/event"
)

// collectSink records enqueued events in order.
type collectSink struct {
	events []event.Event
}

func (s *collectSink) Put(ev event.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) switches(kind string) []event.Switch {
	var out []event.Switch
	for _, ev := range s.events {
		if sw, ok := ev.(event.Switch); ok && sw.Kind == kind {
			out = append(out, sw)
		}
	}
	return out
}

func (s *collectSink) upserts() []event.AppUpsert {
	var out []event.AppUpsert
	for _, ev := range s.events {
		if up, ok := ev.(event.AppUpsert); ok {
			out = append(out, up)
		}
	}
	return out
}

// scriptedSource replays a fixed snapshot sequence, one per Sample call.
type scriptedSource struct {
	snaps []Snapshot
	errs  []error
	i     int
}

func (s *scriptedSource) Sample() (Snapshot, error) {
	idx := s.i
	if idx >= len(s.snaps) {
		idx = len(s.snaps) - 1
	}
	s.i++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return Snapshot{}, s.errs[idx]
	}
	return s.snaps[idx], nil
}

func appSnap(name, bundle string, pid int) Snapshot {
	return Snapshot{App: AppInfo{Name: name, BundleID: bundle, PID: pid}}
}

func newTestTracker(source Source, sink Sink) *Tracker {
	return New(source, sink, "sess-1", 10*time.Millisecond, nil)
}

func TestAppSwitchesOnlyOnTransitions(t *testing.T) {
	a := appSnap("Editor", "com.example.a", 1)
	b := appSnap("Browser", "com.example.b", 2)
	source := &scriptedSource{snaps: []Snapshot{a, a, b, b, a}}
	sink := &collectSink{}
	trk := newTestTracker(source, sink)

	for range 5 {
		trk.Tick()
	}

	// A,A,B,B,A: the first observation primes without a transition, then
	// A->B and B->A.
	switches := sink.switches(event.SwitchApp)
	require.Len(t, switches, 2)

	require.Equal(t, "com.example.a", switches[0].FromBundle)
	require.Equal(t, "com.example.b", switches[0].ToBundle)
	require.Equal(t, 2, switches[0].ToPID)
	require.Equal(t, "sess-1", switches[0].SessionID)

	require.Equal(t, "com.example.b", switches[1].FromBundle)
	require.Equal(t, "com.example.a", switches[1].ToBundle)

	// Every poll with a bundle refreshes the dimension.
	require.Len(t, sink.upserts(), 5)
}

func TestWindowSwitchIndependentOfApp(t *testing.T) {
	app := AppInfo{Name: "Editor", BundleID: "com.example.a", PID: 1}
	w1 := Snapshot{App: app, Window: &WindowInfo{OwnerPID: 1, Number: 101, Title: "main.go"}}
	w2 := Snapshot{App: app, Window: &WindowInfo{OwnerPID: 1, Number: 102, Title: "writer.go"}}
	source := &scriptedSource{snaps: []Snapshot{w1, w1, w2}}
	sink := &collectSink{}
	trk := newTestTracker(source, sink)

	for range 3 {
		trk.Tick()
	}

	require.Empty(t, sink.switches(event.SwitchApp), "same app never produces an app switch")

	switches := sink.switches(event.SwitchWindow)
	require.Len(t, switches, 1)
	require.Equal(t, 101, switches[0].FromWindowNum)
	require.Equal(t, "main.go", switches[0].FromWindowTitle)
	require.Equal(t, 102, switches[0].ToWindowNum)
	require.Equal(t, "writer.go", switches[0].ToWindowTitle)
	require.Equal(t, "com.example.a", switches[0].ToBundle)
}

func TestSampleErrorSkipsTick(t *testing.T) {
	a := appSnap("Editor", "com.example.a", 1)
	b := appSnap("Browser", "com.example.b", 2)
	source := &scriptedSource{
		snaps: []Snapshot{a, {}, b},
		errs:  []error{nil, errors.New("lookup failed"), nil},
	}
	sink := &collectSink{}
	trk := newTestTracker(source, sink)

	for range 3 {
		trk.Tick()
	}

	// The failed tick emits nothing; the next good tick still sees the
	// transition from the last successful state.
	switches := sink.switches(event.SwitchApp)
	require.Len(t, switches, 1)
	require.Equal(t, "com.example.a", switches[0].FromBundle)
	require.Len(t, sink.upserts(), 2)
}

func TestNoWindowNoWindowSwitch(t *testing.T) {
	a := appSnap("Editor", "com.example.a", 1)
	source := &scriptedSource{snaps: []Snapshot{a, a, a}}
	sink := &collectSink{}
	trk := newTestTracker(source, sink)

	for range 3 {
		trk.Tick()
	}
	require.Empty(t, sink.switches(event.SwitchWindow))
}

func TestEmptyAppNeverSwitches(t *testing.T) {
	a := appSnap("Editor", "com.example.a", 1)
	empty := Snapshot{}
	source := &scriptedSource{snaps: []Snapshot{a, empty, a}}
	sink := &collectSink{}
	trk := newTestTracker(source, sink)

	for range 3 {
		trk.Tick()
	}

	// Empty identity is never a transition endpoint; A -> (empty) -> A is
	// not two switches, or any.
	require.Empty(t, sink.switches(event.SwitchApp))
}
