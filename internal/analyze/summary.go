// Package analyze implements read-only reporting queries over a capture
// database. Operations take the database handle directly and never write.
package analyze

import (
	"database/sql"
	"fmt"
	"math"
)

// SummaryInput contains parameters for the Summary operation.
type SummaryInput struct {
	TopAppLimit int // default: 10
}

// DefaultTopAppLimit bounds the top-apps ranking when no limit is given.
const DefaultTopAppLimit = 10

// AppClicks is one row of the clicks-per-application ranking.
type AppClicks struct {
	AppName string `json:"app_name"`
	Clicks  int64  `json:"clicks"`
}

// KeyWindow is the best rolling 60-second keypress window.
type KeyWindow struct {
	StartTS    float64 `json:"start_ts"`
	EndTS      float64 `json:"end_ts"`
	Keypresses int64   `json:"keypresses"`
}

// SummaryOutput contains the result of the Summary operation.
type SummaryOutput struct {
	Clicks     int64       `json:"clicks"`
	Moves      int64       `json:"moves"`
	Switches   int64       `json:"switches"`
	Keypresses int64       `json:"keypresses"`
	KPMOverall float64     `json:"kpm_overall"`
	KPMLast60m float64     `json:"kpm_last_60m"`
	BestKPM    float64     `json:"best_kpm"`
	BestWindow *KeyWindow  `json:"best_kpm_window"`
	TopApps    []AppClicks `json:"top_apps"`
}

// Summary aggregates activity totals and keypress rates across all sessions.
func Summary(database *sql.DB, input SummaryInput) (*SummaryOutput, error) {
	limit := input.TopAppLimit
	if limit <= 0 {
		limit = DefaultTopAppLimit
	}

	out := &SummaryOutput{TopApps: []AppClicks{}}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM pointer_events WHERE kind IN ('click_down','click_up')`, &out.Clicks},
		{`SELECT COUNT(*) FROM pointer_events WHERE kind = 'move'`, &out.Moves},
		{`SELECT COUNT(*) FROM switches`, &out.Switches},
		{`SELECT COUNT(*) FROM key_events WHERE kind = 'key_down'`, &out.Keypresses},
	}
	for _, c := range counts {
		if err := database.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("summary count: %w", err)
		}
	}

	// Overall rate uses summed session durations; a live session counts up to
	// now rather than being excluded.
	var totalSeconds sql.NullFloat64
	err := database.QueryRow(
		`SELECT SUM(COALESCE(ended_at, strftime('%s','now')) - started_at) FROM sessions`,
	).Scan(&totalSeconds)
	if err != nil {
		return nil, fmt.Errorf("summary durations: %w", err)
	}
	if totalSeconds.Valid && totalSeconds.Float64 > 0 {
		out.KPMOverall = round2(float64(out.Keypresses) / (totalSeconds.Float64 / 60.0))
	}

	var last60m sql.NullFloat64
	err = database.QueryRow(
		`SELECT COUNT(*) / 60.0 FROM key_events
		 WHERE kind = 'key_down' AND ts >= strftime('%s','now') - 3600`,
	).Scan(&last60m)
	if err != nil {
		return nil, fmt.Errorf("summary last hour: %w", err)
	}
	out.KPMLast60m = round2(last60m.Float64)

	// Best 60-second window: rate per minute over a 60s window equals the
	// raw count, so best_kpm is the count itself.
	var bestStart sql.NullFloat64
	var bestCount sql.NullInt64
	err = database.QueryRow(
		`WITH kd AS (SELECT ts FROM key_events WHERE kind = 'key_down')
		 SELECT k1.ts,
		        (SELECT COUNT(*) FROM kd k2 WHERE k2.ts BETWEEN k1.ts AND k1.ts + 60.0)
		 FROM kd k1
		 ORDER BY 2 DESC, 1 ASC
		 LIMIT 1`,
	).Scan(&bestStart, &bestCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("summary best window: %w", err)
	}
	if err == nil && bestStart.Valid {
		out.BestKPM = round2(float64(bestCount.Int64))
		out.BestWindow = &KeyWindow{
			StartTS:    bestStart.Float64,
			EndTS:      bestStart.Float64 + 60.0,
			Keypresses: bestCount.Int64,
		}
	}

	rows, err := database.Query(
		`SELECT app_name, clicks FROM vw_clicks_by_app ORDER BY clicks DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("summary top apps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a AppClicks
		if err := rows.Scan(&a.AppName, &a.Clicks); err != nil {
			return nil, fmt.Errorf("scan top app: %w", err)
		}
		out.TopApps = append(out.TopApps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top app rows: %w", err)
	}

	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
