package analyze

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/deskwatch/internal/event"
	"github.com/quietloop/deskwatch/internal/store"
)

func seedStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "deskwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	id, err := st.OpenSession()
	require.NoError(t, err)
	return st, id
}

func TestSummaryEmptyDatabase(t *testing.T) {
	st, _ := seedStore(t)

	out, err := Summary(st.DB(), SummaryInput{})
	require.NoError(t, err)
	require.Zero(t, out.Clicks)
	require.Zero(t, out.Moves)
	require.Zero(t, out.Switches)
	require.Zero(t, out.Keypresses)
	require.Zero(t, out.BestKPM)
	require.Nil(t, out.BestWindow)
	require.Empty(t, out.TopApps)
}

func TestSummaryAggregates(t *testing.T) {
	st, id := seedStore(t)
	ctx := context.Background()
	now := event.Now()

	// 10-minute closed session ending now.
	_, err := st.DB().Exec(
		`UPDATE sessions SET started_at = ?, ended_at = ? WHERE id = ?`,
		now-600, now, id,
	)
	require.NoError(t, err)

	require.NoError(t, store.ApplyAppUpsert(ctx, st.DB(), event.AppUpsert{BundleID: "com.example.editor", Name: "Editor", SeenAt: now}))
	require.NoError(t, store.ApplyAppUpsert(ctx, st.DB(), event.AppUpsert{BundleID: "com.example.browser", Name: "Browser", SeenAt: now}))

	pointers := []event.Pointer{
		{TS: now - 100, Kind: event.PointerClickDown, BundleID: "com.example.editor", SessionID: id},
		{TS: now - 99, Kind: event.PointerClickUp, BundleID: "com.example.editor", SessionID: id},
		{TS: now - 50, Kind: event.PointerClickDown, BundleID: "com.example.browser", SessionID: id},
		{TS: now - 40, Kind: event.PointerMove, BundleID: "com.example.editor", SessionID: id},
		{TS: now - 39, Kind: event.PointerMove, BundleID: "com.example.editor", SessionID: id},
	}
	for _, p := range pointers {
		require.NoError(t, store.ApplyPointer(ctx, st.DB(), p))
	}

	// Four keydowns inside one minute, well within the last hour.
	for i := range 4 {
		require.NoError(t, store.ApplyKey(ctx, st.DB(), event.Key{
			TS: now - 30 + float64(i), Kind: event.KeyDown, Key: "key:0", SessionID: id,
		}))
	}
	// Key-ups never count as keypresses.
	require.NoError(t, store.ApplyKey(ctx, st.DB(), event.Key{
		TS: now - 25, Kind: event.KeyUp, Key: "key:0", SessionID: id,
	}))

	require.NoError(t, store.ApplySwitch(ctx, st.DB(), event.Switch{
		TS: now - 20, Kind: event.SwitchApp, ToBundle: "com.example.browser", SessionID: id,
	}))

	out, err := Summary(st.DB(), SummaryInput{})
	require.NoError(t, err)

	require.Equal(t, int64(3), out.Clicks)
	require.Equal(t, int64(2), out.Moves)
	require.Equal(t, int64(1), out.Switches)
	require.Equal(t, int64(4), out.Keypresses)

	// 4 keydowns over 10 minutes.
	require.InDelta(t, 0.4, out.KPMOverall, 0.01)
	require.InDelta(t, 4.0/60.0, out.KPMLast60m, 0.01)

	// All four land in one rolling 60s window.
	require.Equal(t, 4.0, out.BestKPM)
	require.NotNil(t, out.BestWindow)
	require.Equal(t, int64(4), out.BestWindow.Keypresses)
	require.Equal(t, out.BestWindow.StartTS+60.0, out.BestWindow.EndTS)

	// Editor has 2 click rows, Browser 1; ranking is descending.
	require.Len(t, out.TopApps, 2)
	require.Equal(t, "Editor", out.TopApps[0].AppName)
	require.Equal(t, int64(2), out.TopApps[0].Clicks)
	require.Equal(t, "Browser", out.TopApps[1].AppName)
	require.Equal(t, int64(1), out.TopApps[1].Clicks)
}

func TestSummaryTopAppLimit(t *testing.T) {
	st, id := seedStore(t)
	ctx := context.Background()
	now := event.Now()

	for _, bundle := range []string{"a.app", "b.app", "c.app"} {
		require.NoError(t, store.ApplyAppUpsert(ctx, st.DB(), event.AppUpsert{BundleID: bundle, SeenAt: now}))
		require.NoError(t, store.ApplyPointer(ctx, st.DB(), event.Pointer{
			TS: now, Kind: event.PointerClickDown, BundleID: bundle, SessionID: id,
		}))
	}

	out, err := Summary(st.DB(), SummaryInput{TopAppLimit: 2})
	require.NoError(t, err)
	require.Len(t, out.TopApps, 2)
}

func TestSummaryLiveSessionCountsToNow(t *testing.T) {
	st, id := seedStore(t)
	ctx := context.Background()
	now := event.Now()

	// Session still open; duration accrues to now.
	_, err := st.DB().Exec(`UPDATE sessions SET started_at = ? WHERE id = ?`, now-120, id)
	require.NoError(t, err)

	require.NoError(t, store.ApplyKey(ctx, st.DB(), event.Key{
		TS: now - 10, Kind: event.KeyDown, Key: "key:0", SessionID: id,
	}))

	out, err := Summary(st.DB(), SummaryInput{})
	require.NoError(t, err)
	require.Greater(t, out.KPMOverall, 0.0)
}
