package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quietloop/deskwatch/internal/event"
	dwerrors "github.com/quietloop/deskwatch/internal/errors"
)

// Session is one collector run. EndedAt is nil while the run is live.
type Session struct {
	ID        string   `json:"id"`
	StartedAt float64  `json:"started_at"`
	EndedAt   *float64 `json:"ended_at,omitempty"`
	Hostname  string   `json:"hostname"`
	Username  string   `json:"username"`
	OSVersion string   `json:"os_version"`
}

// OpenSession inserts a new session row with started_at = now and returns its
// id. Host metadata lookups are best-effort; only storage I/O errors fail.
func (s *Store) OpenSession() (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", dwerrors.NewInternal(err)
	}

	hostname, _ := os.Hostname()
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, started_at, hostname, username, os_version)
		 VALUES (?, ?, ?, ?, ?)`,
		id, event.Now(), hostname, username, osVersion(),
	)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return id, nil
}

// CloseSession sets ended_at where it is still NULL. Idempotent: closing an
// already-closed session leaves the first timestamp in place.
func (s *Store) CloseSession(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		event.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// GetSession returns one session row.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, ended_at, hostname, username, os_version
		 FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, dwerrors.NewNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions ordered most recent first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, ended_at, hostname, username, os_version
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session rows: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var endedAt sql.NullFloat64
	if err := row.Scan(&sess.ID, &sess.StartedAt, &endedAt, &sess.Hostname, &sess.Username, &sess.OSVersion); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Float64
	}
	return &sess, nil
}

// newSessionID generates a ULID for a session row.
func newSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
