// Package writer implements the batching writer: the sole mutator of the
// fact tables. Producers enqueue event values onto a bounded FIFO intake; a
// single drain goroutine applies them to storage on a dedicated connection
// and commits on a fixed cadence, so hook callbacks never wait on storage
// latency.
package writer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quietloop/deskwatch/internal/config"
	"github.com/quietloop/deskwatch/internal/event"
	dwerrors "github.com/quietloop/deskwatch/internal/errors"
	"github.com/quietloop/deskwatch/internal/store"
)

// Writer drains the intake queue into the store.
type Writer struct {
	st             *store.Store
	log            *slog.Logger
	intake         chan event.Event
	commitInterval time.Duration
	stopTimeout    time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}

	applied atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// New builds a writer over the store using the configured queue capacity,
// commit cadence, and shutdown bound.
func New(st *store.Store, cfg *config.Config, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		st:             st,
		log:            log,
		intake:         make(chan event.Event, cfg.QueueSize),
		commitInterval: cfg.CommitInterval(),
		stopTimeout:    cfg.StopTimeout(),
		done:           make(chan struct{}),
	}
}

// Start acquires the dedicated write connection and launches the drain loop.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return nil
	}

	conn, err := w.st.DB().Conn(context.Background())
	if err != nil {
		return dwerrors.NewStoreUnavailable(err)
	}

	w.started = true
	go w.run(conn)
	return nil
}

// Put enqueues one event. Blocks while the intake is at capacity; returns an
// error only once the writer has been stopped. Ordering follows enqueue
// order end to end.
func (w *Writer) Put(ev event.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return dwerrors.NewWriterStopped()
	}
	w.intake <- ev
	return nil
}

// Stop closes the intake and blocks until the drain loop has flushed every
// already-enqueued event and issued the final commit, bounded by the stop
// timeout. On timeout the drain task is abandoned and remaining events are
// reported as lost.
func (w *Writer) Stop() error {
	w.mu.Lock()
	alreadyClosed := w.closed
	started := w.started
	if !alreadyClosed {
		w.closed = true
		close(w.intake)
	}
	w.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-time.After(w.stopTimeout):
		pending := len(w.intake)
		w.log.Warn("writer flush timed out, events lost", "pending", pending)
		return dwerrors.NewShutdownTimeout(pending)
	}
}

// Depth reports current intake occupancy.
func (w *Writer) Depth() int {
	return len(w.intake)
}

// Applied reports the number of events successfully applied to storage.
func (w *Writer) Applied() uint64 { return w.applied.Load() }

// Failed reports the number of events whose apply failed (data-loss risk).
func (w *Writer) Failed() uint64 { return w.failed.Load() }

// Dropped reports the number of unrecognized variants discarded.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

func (w *Writer) run(conn *sql.Conn) {
	defer close(w.done)
	defer conn.Close()

	ctx := context.Background()
	ticker := time.NewTicker(w.commitInterval)
	defer ticker.Stop()

	inTx := false
	begin := func() {
		if inTx {
			return
		}
		// IMMEDIATE takes the write lock up front so readers never promote
		// the deferred lock mid-batch.
		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			w.log.Error("begin batch failed", "error", err)
			return
		}
		inTx = true
	}
	commit := func() {
		if !inTx {
			return
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			w.log.Error("commit batch failed", "error", err)
			return
		}
		inTx = false
	}

	for {
		select {
		case ev, ok := <-w.intake:
			if !ok {
				// Intake closed and fully drained: final unconditional commit.
				commit()
				return
			}
			begin()
			w.apply(ctx, conn, ev)
		case <-ticker.C:
			commit()
		}
	}
}

// apply matches one variant to its insert. A failed insert is counted and
// logged, never fatal to the drain loop.
func (w *Writer) apply(ctx context.Context, conn *sql.Conn, ev event.Event) {
	var err error
	switch e := ev.(type) {
	case event.Pointer:
		err = store.ApplyPointer(ctx, conn, e)
	case event.Key:
		err = store.ApplyKey(ctx, conn, e)
	case event.Switch:
		err = store.ApplySwitch(ctx, conn, e)
	case event.AppUpsert:
		err = store.ApplyAppUpsert(ctx, conn, e)
	default:
		w.dropped.Add(1)
		w.log.Warn("dropping unrecognized event variant", "type", fmt.Sprintf("%T", ev))
		return
	}
	if err != nil {
		w.failed.Add(1)
		w.log.Error("apply failed", "error", err)
		return
	}
	w.applied.Add(1)
}
