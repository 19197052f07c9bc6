package store

import (
	"context"
	"database/sql"

	"github.com/quietloop/deskwatch/internal/event"
)

// Execer is the slice of database/sql the writer-path apply functions need.
// Satisfied by *sql.DB, *sql.Conn, and *sql.Tx; the batching writer passes
// its dedicated connection so exactly one path mutates fact tables.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplyPointer inserts one pointer fact row.
func ApplyPointer(ctx context.Context, ex Execer, ev event.Pointer) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO pointer_events (ts, kind, x, y, extra, bundle_id, pid, window_num, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TS, ev.Kind, ev.X, ev.Y,
		nullableString(ev.Extra), ev.BundleID,
		nullableInt(ev.PID), nullableInt(ev.WindowNum),
		ev.SessionID,
	)
	return err
}

// ApplyKey inserts one key fact row.
func ApplyKey(ctx context.Context, ex Execer, ev event.Key) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO key_events (ts, kind, key, modifiers, bundle_id, pid, window_num, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TS, ev.Kind, ev.Key,
		nullableString(ev.Modifiers), ev.BundleID,
		nullableInt(ev.PID), nullableInt(ev.WindowNum),
		ev.SessionID,
	)
	return err
}

// ApplySwitch inserts one focus-transition fact row.
func ApplySwitch(ctx context.Context, ex Execer, ev event.Switch) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO switches (ts, kind, from_bundle, from_pid, from_window_num, from_window_title,
		                       to_bundle, to_pid, to_window_num, to_window_title, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.TS, ev.Kind,
		nullableString(ev.FromBundle), nullableInt(ev.FromPID),
		nullableInt(ev.FromWindowNum), nullableString(ev.FromWindowTitle),
		nullableString(ev.ToBundle), nullableInt(ev.ToPID),
		nullableInt(ev.ToWindowNum), nullableString(ev.ToWindowTitle),
		ev.SessionID,
	)
	return err
}

// nullableString stores empty strings as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableInt stores zero (the "unknown" sentinel from OS lookups) as NULL.
func nullableInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
