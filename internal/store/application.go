package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quietloop/deskwatch/internal/event"
)

// Application is a dimension row keyed by bundle id.
type Application struct {
	BundleID    string  `json:"bundle_id"`
	AppName     string  `json:"app_name"`
	FirstSeenTS float64 `json:"first_seen_ts"`
}

const upsertApplicationSQL = `
	INSERT INTO applications (bundle_id, app_name, first_seen_ts)
	VALUES (?, ?, ?)
	ON CONFLICT(bundle_id) DO UPDATE SET app_name = excluded.app_name`

// UpsertApplication inserts or refreshes a dimension row. On conflict only
// app_name is updated; first_seen_ts stays at the first insert's value.
// Synchronous path for callers outside the writer; producers should enqueue
// an event.AppUpsert instead.
func (s *Store) UpsertApplication(bundleID, appName string) error {
	if appName == "" {
		appName = bundleID
	}
	_, err := s.db.Exec(upsertApplicationSQL, bundleID, appName, event.Now())
	if err != nil {
		return fmt.Errorf("upsert application: %w", err)
	}
	return nil
}

// ApplyAppUpsert is the writer-path equivalent, executed on the writer's
// dedicated connection inside its batch transaction.
func ApplyAppUpsert(ctx context.Context, ex Execer, ev event.AppUpsert) error {
	name := ev.Name
	if name == "" {
		name = ev.BundleID
	}
	seenAt := ev.SeenAt
	if seenAt == 0 {
		seenAt = event.Now()
	}
	_, err := ex.ExecContext(ctx, upsertApplicationSQL, ev.BundleID, name, seenAt)
	return err
}

// ListApplications returns the dimension ordered by first sighting.
func (s *Store) ListApplications(limit int) ([]Application, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(
		`SELECT bundle_id, app_name, first_seen_ts
		 FROM applications ORDER BY first_seen_ts ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(&app.BundleID, &app.AppName, &app.FirstSeenTS); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("application rows: %w", err)
	}
	return apps, nil
}

// GetApplication returns one dimension row, or sql.ErrNoRows wrapped as a
// not-found error by callers that care.
func (s *Store) GetApplication(bundleID string) (*Application, error) {
	row := s.db.QueryRow(
		`SELECT bundle_id, app_name, first_seen_ts FROM applications WHERE bundle_id = ?`,
		bundleID,
	)
	var app Application
	if err := row.Scan(&app.BundleID, &app.AppName, &app.FirstSeenTS); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}
