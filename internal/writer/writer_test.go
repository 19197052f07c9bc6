package writer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/deskwatch/internal/config"
	"github.com/quietloop/deskwatch/internal/event"
	dwerrors "github.com/quietloop/deskwatch/internal/errors"
	"github.com/quietloop/deskwatch/internal/store"
)

// testWriter opens a store with an open session and builds a writer over it.
func testWriter(t *testing.T, cfg *config.Config) (*Writer, *store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "deskwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessionID, err := st.OpenSession()
	require.NoError(t, err)

	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.CommitIntervalMs = 50
	}
	return New(st, cfg, nil), st, sessionID
}

func countRows(t *testing.T, st *store.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestCleanStopLosesNothing(t *testing.T) {
	w, st, sessionID := testWriter(t, nil)
	require.NoError(t, w.Start())

	const n = 200
	for i := range n {
		require.NoError(t, w.Put(event.Pointer{
			TS: float64(i), Kind: event.PointerMove, X: float64(i), SessionID: sessionID,
		}))
	}
	require.NoError(t, w.Stop())

	require.Equal(t, n, countRows(t, st, "pointer_events"))
	require.Equal(t, uint64(n), w.Applied())
	require.Zero(t, w.Failed())
	require.Zero(t, w.Dropped())
	require.Zero(t, w.Depth())
}

func TestAppliesInEnqueueOrder(t *testing.T) {
	w, st, sessionID := testWriter(t, nil)
	require.NoError(t, w.Start())

	for i := range 50 {
		require.NoError(t, w.Put(event.Pointer{
			TS: float64(i), Kind: event.PointerMove, X: float64(i), SessionID: sessionID,
		}))
	}
	require.NoError(t, w.Stop())

	rows, err := st.DB().Query("SELECT x FROM pointer_events ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	want := 0.0
	for rows.Next() {
		var x float64
		require.NoError(t, rows.Scan(&x))
		require.Equal(t, want, x)
		want++
	}
	require.NoError(t, rows.Err())
	require.Equal(t, 50.0, want)
}

func TestPutAfterStop(t *testing.T) {
	w, _, sessionID := testWriter(t, nil)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())

	err := w.Put(event.Pointer{Kind: event.PointerMove, SessionID: sessionID})
	require.Error(t, err)
	require.True(t, dwerrors.Is(err, dwerrors.ErrWriterStopped))
}

func TestStopTwice(t *testing.T) {
	w, _, _ := testWriter(t, nil)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

// bogus embeds a known variant so it satisfies the Event interface without
// matching any case in the writer's type switch.
type bogus struct {
	event.Pointer
}

func TestUnknownVariantDropped(t *testing.T) {
	w, st, sessionID := testWriter(t, nil)
	require.NoError(t, w.Start())

	require.NoError(t, w.Put(bogus{}))
	require.NoError(t, w.Put(event.Pointer{
		TS: 1, Kind: event.PointerMove, SessionID: sessionID,
	}))
	require.NoError(t, w.Stop())

	require.Equal(t, uint64(1), w.Dropped())
	require.Equal(t, uint64(1), w.Applied())
	require.Equal(t, 1, countRows(t, st, "pointer_events"))
}

func TestFailedApplyDoesNotStopDrain(t *testing.T) {
	w, st, sessionID := testWriter(t, nil)
	require.NoError(t, w.Start())

	// Violates the kind CHECK constraint.
	require.NoError(t, w.Put(event.Pointer{TS: 1, Kind: "hover", SessionID: sessionID}))
	require.NoError(t, w.Put(event.Pointer{TS: 2, Kind: event.PointerMove, SessionID: sessionID}))
	require.NoError(t, w.Stop())

	require.Equal(t, uint64(1), w.Failed())
	require.Equal(t, uint64(1), w.Applied())
	require.Equal(t, 1, countRows(t, st, "pointer_events"))
}

func TestVisibleWithinCommitInterval(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CommitIntervalMs = 50
	w, st, sessionID := testWriter(t, cfg)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, w.Put(event.Pointer{
		TS: 1, Kind: event.PointerClickDown, Extra: "left", SessionID: sessionID,
	}))

	// A separate pool connection must see the row after the next commit tick,
	// without waiting for Stop.
	require.Eventually(t, func() bool {
		return countRows(t, st, "pointer_events") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBlockedProducerUnblocksOnDrain(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CommitIntervalMs = 20
	cfg.QueueSize = 1
	w, st, sessionID := testWriter(t, cfg)

	// Writer not started: the first put fills the intake, the second blocks.
	require.NoError(t, w.Put(event.Pointer{TS: 1, Kind: event.PointerMove, SessionID: sessionID}))

	done := make(chan error, 1)
	go func() {
		done <- w.Put(event.Pointer{TS: 2, Kind: event.PointerMove, SessionID: sessionID})
	}()

	select {
	case <-done:
		t.Fatal("put should block while the intake is full")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, w.Start())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked put never unblocked after drain started")
	}

	require.NoError(t, w.Stop())
	require.Equal(t, 2, countRows(t, st, "pointer_events"))
}

func TestStopWithoutStart(t *testing.T) {
	w, _, _ := testWriter(t, nil)
	require.NoError(t, w.Stop())
}
