// Package collector wires the capture pipeline together: one session row, the
// batching writer, the focus tracker, and the OS input hooks. Run blocks for
// the lifetime of the capture and performs the ordered shutdown sequence when
// the context is cancelled.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quietloop/deskwatch/internal/config"
	"github.com/quietloop/deskwatch/internal/event"
	"github.com/quietloop/deskwatch/internal/focus"
	"github.com/quietloop/deskwatch/internal/hook"
	"github.com/quietloop/deskwatch/internal/store"
	"github.com/quietloop/deskwatch/internal/tracker"
	"github.com/quietloop/deskwatch/internal/writer"
)

// Options configures a collector. Store and Config are required; Source,
// Pointer, and Keyboard default to the OS-backed implementations when nil,
// which lets tests substitute scripted fakes.
type Options struct {
	Config   *config.Config
	Store    *store.Store
	Log      *slog.Logger
	Source   tracker.Source
	Pointer  hook.Hook
	Keyboard hook.Hook
}

// Collector owns one capture run.
type Collector struct {
	cfg      *config.Config
	st       *store.Store
	log      *slog.Logger
	source   tracker.Source
	pointer  hook.Hook
	keyboard hook.Hook

	shutdown sync.Once

	mu        sync.Mutex
	sessionID string
}

// New validates configuration and resolves the platform capture backends.
func New(opts Options) (*Collector, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	c := &Collector{
		cfg:      cfg,
		st:       opts.Store,
		log:      log,
		source:   opts.Source,
		pointer:  opts.Pointer,
		keyboard: opts.Keyboard,
	}

	var err error
	if c.source == nil {
		if c.source, err = focus.NewSource(); err != nil {
			return nil, err
		}
	}
	if c.pointer == nil {
		if c.pointer, err = hook.NewPointer(); err != nil {
			return nil, err
		}
	}
	if c.keyboard == nil && !cfg.DisableKeys {
		if c.keyboard, err = hook.NewKeyboard(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SessionID returns the session opened by Run, empty before Run starts.
func (c *Collector) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Run opens a session and captures until ctx is cancelled, then shuts down in
// order: stop producers, flush the writer, close the session. The store handle
// stays open; it belongs to the caller.
func (c *Collector) Run(ctx context.Context) error {
	sessionID, err := c.st.OpenSession()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	c.log.Info("session opened", "session_id", sessionID)

	w := writer.New(c.st, c.cfg, c.log)
	if err := w.Start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	trk := tracker.New(c.source, w, sessionID, c.cfg.PollInterval(), c.log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		trk.Run(runCtx)
	}()

	c.runHook(runCtx, &wg, "pointer", c.pointer, c.pointerEvents(w, sessionID))
	if !c.cfg.DisableKeys && c.keyboard != nil {
		c.runHook(runCtx, &wg, "keyboard", c.keyboard, c.keyboardEvents(w, sessionID))
	}

	<-runCtx.Done()

	var shutdownErr error
	c.shutdown.Do(func() {
		cancel()
		wg.Wait()

		if err := w.Stop(); err != nil {
			shutdownErr = err
		}
		if err := c.st.CloseSession(sessionID); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
		c.log.Info("session closed",
			"session_id", sessionID,
			"applied", w.Applied(),
			"failed", w.Failed(),
			"dropped", w.Dropped(),
		)
	})
	return shutdownErr
}

func (c *Collector) runHook(ctx context.Context, wg *sync.WaitGroup, name string, h hook.Hook, ev hook.Events) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.Run(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("input hook terminated", "hook", name, "error", err)
		}
	}()
}

// pointerEvents builds the pointer callback set. Moves pass through the rate
// gate; clicks and scrolls are never limited.
func (c *Collector) pointerEvents(w *writer.Writer, sessionID string) hook.Events {
	ev := hook.Events{
		Click: func(x, y float64, button string, pressed bool) {
			kind := event.PointerClickUp
			if pressed {
				kind = event.PointerClickDown
			}
			c.putPointer(w, sessionID, kind, x, y, button)
		},
		Scroll: func(x, y, dx, dy float64) {
			c.putPointer(w, sessionID, event.PointerScroll, x, y, fmt.Sprintf("%g,%g", dx, dy))
		},
	}
	if !c.cfg.DisableMoves {
		gate := hook.NewMoveGate(c.cfg.MoveInterval())
		ev.Move = func(x, y float64) {
			if gate.Allow() {
				c.putPointer(w, sessionID, event.PointerMove, x, y, "")
			}
		}
	}
	return ev
}

func (c *Collector) keyboardEvents(w *writer.Writer, sessionID string) hook.Events {
	return hook.Events{
		Key: func(key, modifiers string, down bool) {
			kind := event.KeyUp
			if down {
				kind = event.KeyDown
			}
			ts := event.Now()
			fc := c.sampleContext(w, ts)
			c.put(w, event.Key{
				TS:        ts,
				Kind:      kind,
				Key:       key,
				Modifiers: modifiers,
				BundleID:  fc.bundle,
				PID:       fc.pid,
				WindowNum: fc.windowNum,
				SessionID: sessionID,
			})
		},
	}
}

func (c *Collector) putPointer(w *writer.Writer, sessionID, kind string, x, y float64, extra string) {
	ts := event.Now()
	fc := c.sampleContext(w, ts)
	c.put(w, event.Pointer{
		TS:        ts,
		Kind:      kind,
		X:         x,
		Y:         y,
		Extra:     extra,
		BundleID:  fc.bundle,
		PID:       fc.pid,
		WindowNum: fc.windowNum,
		SessionID: sessionID,
	})
}

type focusContext struct {
	bundle    string
	pid       int
	windowNum int
}

// sampleContext reads current focus at the moment of an input event, so fact
// rows carry accurate context even between poll ticks, and re-issues the
// application upsert so the dimension row is enqueued no later than the fact
// row referencing it. A failed lookup yields empty context, never an error.
func (c *Collector) sampleContext(w *writer.Writer, ts float64) focusContext {
	snap, err := c.source.Sample()
	if err != nil {
		return focusContext{}
	}
	fc := focusContext{bundle: snap.App.BundleID, pid: snap.App.PID}
	if snap.Window != nil {
		fc.windowNum = snap.Window.Number
	}
	if fc.bundle != "" {
		c.put(w, event.AppUpsert{BundleID: fc.bundle, Name: snap.App.Name, SeenAt: ts})
	}
	return fc
}

func (c *Collector) put(w *writer.Writer, ev event.Event) {
	if err := w.Put(ev); err != nil {
		// Only the shutdown race rejects; the event is deliberately lost.
		c.log.Debug("enqueue rejected", "error", err)
	}
}
