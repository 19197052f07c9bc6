// Package tracker polls the OS for the frontmost application and topmost
// window at a fixed rate and emits switch events on state transitions.
// Repeated polls of unchanged focus emit nothing.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/quietloop/deskwatch/internal/event"
)

// AppInfo identifies the frontmost application.
type AppInfo struct {
	Name     string
	BundleID string
	PID      int
}

// WindowInfo identifies the topmost on-screen window.
type WindowInfo struct {
	OwnerName string
	OwnerPID  int
	Number    int
	Title     string
}

// Snapshot is one poll's worth of focus facts. Window is nil when no
// layer-zero window is visible.
type Snapshot struct {
	App    AppInfo
	Window *WindowInfo
}

// Source reads current focus facts from the OS. Implementations return an
// error for transient lookup failures; the tracker skips that tick and
// retries on the next one.
type Source interface {
	Sample() (Snapshot, error)
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func() (Snapshot, error)

// Sample calls the underlying function.
func (f SourceFunc) Sample() (Snapshot, error) {
	return f()
}

// Sink is the writer intake handle. The tracker holds nothing else of the
// writer's internals.
type Sink interface {
	Put(ev event.Event) error
}

type windowState struct {
	pid    int
	number int
	title  string
}

// Tracker is the focus-poll state machine. Its two state structs are private
// and touched only by the poll goroutine.
type Tracker struct {
	source    Source
	sink      Sink
	log       *slog.Logger
	sessionID string
	interval  time.Duration
	now       func() time.Time

	lastApp AppInfo
	lastWin windowState
	hasWin  bool
}

// New builds a tracker emitting into sink for the given session.
func New(source Source, sink Sink, sessionID string, interval time.Duration, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		source:    source,
		sink:      sink,
		log:       log,
		sessionID: sessionID,
		interval:  interval,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled. Transient source errors never terminate
// the loop.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick performs one poll: refresh the application dimension, then detect app
// and window transitions independently.
func (t *Tracker) Tick() {
	snap, err := t.source.Sample()
	if err != nil {
		t.log.Debug("focus poll failed, skipping tick", "error", err)
		return
	}

	ts := event.Seconds(t.now())
	app := snap.App
	win := snap.Window

	// Keep the dimension fresh even without a focus change; the upsert is
	// idempotent and guarantees the FK target exists before any fact row.
	if app.BundleID != "" {
		t.put(event.AppUpsert{BundleID: app.BundleID, Name: app.Name, SeenAt: ts})
	}

	if app.Name != "" && app.BundleID != "" &&
		(app.Name != t.lastApp.Name || app.BundleID != t.lastApp.BundleID) {
		if t.lastApp.BundleID == "" {
			// First observation primes the state without a transition.
			t.lastApp = app
		} else {
			t.emitAppSwitch(ts, app, win)
			t.lastApp = app
		}
	}

	if win != nil && (!t.hasWin || win.OwnerPID != t.lastWin.pid || win.Number != t.lastWin.number) {
		if t.hasWin {
			t.emitWindowSwitch(ts, app, win)
		}
		t.lastWin = windowState{pid: win.OwnerPID, number: win.Number, title: win.Title}
		t.hasWin = true
	}
}

func (t *Tracker) emitAppSwitch(ts float64, app AppInfo, win *WindowInfo) {
	sw := event.Switch{
		TS:         ts,
		Kind:       event.SwitchApp,
		FromBundle: t.lastApp.BundleID,
		FromPID:    t.lastApp.PID,
		ToBundle:   app.BundleID,
		ToPID:      app.PID,
		SessionID:  t.sessionID,
	}
	if win != nil {
		sw.ToWindowNum = win.Number
		sw.ToWindowTitle = win.Title
	}
	t.put(sw)
}

func (t *Tracker) emitWindowSwitch(ts float64, app AppInfo, win *WindowInfo) {
	// Fall back to the last known app identity when the current app facts
	// are empty, so the transition still names an owner.
	toBundle := app.BundleID
	if toBundle == "" {
		toBundle = t.lastApp.BundleID
	}
	toPID := app.PID
	if toPID == 0 {
		toPID = t.lastApp.PID
	}
	t.put(event.Switch{
		TS:              ts,
		Kind:            event.SwitchWindow,
		FromBundle:      t.lastApp.BundleID,
		FromPID:         t.lastApp.PID,
		FromWindowNum:   t.lastWin.number,
		FromWindowTitle: t.lastWin.title,
		ToBundle:        toBundle,
		ToPID:           toPID,
		ToWindowNum:     win.Number,
		ToWindowTitle:   win.Title,
		SessionID:       t.sessionID,
	})
}

func (t *Tracker) put(ev event.Event) {
	if err := t.sink.Put(ev); err != nil {
		// Only happens during the shutdown race once the intake closed.
		t.log.Debug("enqueue rejected", "error", err)
	}
}
