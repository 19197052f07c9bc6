package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quietloop/deskwatch/internal/event"
)

func TestApplyPointerNullables(t *testing.T) {
	st := openTestStore(t)
	id, err := st.OpenSession()
	require.NoError(t, err)

	ctx := context.Background()
	// Zero pid/window and empty extra become NULL, not zero rows.
	require.NoError(t, ApplyPointer(ctx, st.DB(), event.Pointer{
		TS: 1.0, Kind: event.PointerMove, X: 10, Y: 20, SessionID: id,
	}))

	var extra sql.NullString
	var pid, windowNum sql.NullInt64
	err = st.DB().QueryRow(
		`SELECT extra, pid, window_num FROM pointer_events`,
	).Scan(&extra, &pid, &windowNum)
	require.NoError(t, err)
	require.False(t, extra.Valid)
	require.False(t, pid.Valid)
	require.False(t, windowNum.Valid)
}

func TestApplyPointerRejectsUnknownKind(t *testing.T) {
	st := openTestStore(t)
	id, err := st.OpenSession()
	require.NoError(t, err)

	err = ApplyPointer(context.Background(), st.DB(), event.Pointer{
		TS: 1.0, Kind: "hover", X: 0, Y: 0, SessionID: id,
	})
	require.Error(t, err)
}

func TestApplyKeyRoundTrip(t *testing.T) {
	st := openTestStore(t)
	id, err := st.OpenSession()
	require.NoError(t, err)

	require.NoError(t, ApplyKey(context.Background(), st.DB(), event.Key{
		TS: 2.0, Kind: event.KeyDown, Key: "key:36", Modifiers: "cmd",
		BundleID: "com.example.editor", PID: 42, WindowNum: 7, SessionID: id,
	}))

	var key, modifiers, bundle string
	var pid, windowNum int
	err = st.DB().QueryRow(
		`SELECT key, modifiers, bundle_id, pid, window_num FROM key_events`,
	).Scan(&key, &modifiers, &bundle, &pid, &windowNum)
	require.NoError(t, err)
	require.Equal(t, "key:36", key)
	require.Equal(t, "cmd", modifiers)
	require.Equal(t, "com.example.editor", bundle)
	require.Equal(t, 42, pid)
	require.Equal(t, 7, windowNum)
}

func TestApplySwitchRoundTrip(t *testing.T) {
	st := openTestStore(t)
	id, err := st.OpenSession()
	require.NoError(t, err)

	require.NoError(t, ApplySwitch(context.Background(), st.DB(), event.Switch{
		TS: 3.0, Kind: event.SwitchApp,
		FromBundle: "com.example.a", FromPID: 1,
		ToBundle: "com.example.b", ToPID: 2,
		ToWindowNum: 9, ToWindowTitle: "Inbox",
		SessionID: id,
	}))

	var kind, fromBundle, toBundle, toTitle string
	var toWindowNum int
	err = st.DB().QueryRow(
		`SELECT kind, from_bundle, to_bundle, to_window_num, to_window_title FROM switches`,
	).Scan(&kind, &fromBundle, &toBundle, &toWindowNum, &toTitle)
	require.NoError(t, err)
	require.Equal(t, event.SwitchApp, kind)
	require.Equal(t, "com.example.a", fromBundle)
	require.Equal(t, "com.example.b", toBundle)
	require.Equal(t, 9, toWindowNum)
	require.Equal(t, "Inbox", toTitle)
}

func TestFactRowsRequireSession(t *testing.T) {
	st := openTestStore(t)

	// foreign_keys is on; a fact row cannot reference a missing session.
	err := ApplyPointer(context.Background(), st.DB(), event.Pointer{
		TS: 1.0, Kind: event.PointerMove, SessionID: "nope",
	})
	require.Error(t, err)
}

func TestClicksByAppView(t *testing.T) {
	st := openTestStore(t)
	id, err := st.OpenSession()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ApplyAppUpsert(ctx, st.DB(), event.AppUpsert{BundleID: "com.example.editor", Name: "Editor", SeenAt: 1}))
	for _, kind := range []string{event.PointerClickDown, event.PointerClickUp, event.PointerMove} {
		require.NoError(t, ApplyPointer(ctx, st.DB(), event.Pointer{
			TS: 1.0, Kind: kind, BundleID: "com.example.editor", SessionID: id,
		}))
	}

	var name string
	var clicks int
	err = st.DB().QueryRow(`SELECT app_name, clicks FROM vw_clicks_by_app`).Scan(&name, &clicks)
	require.NoError(t, err)
	require.Equal(t, "Editor", name)
	require.Equal(t, 2, clicks, "moves must not count as clicks")
}
