// Package ledger persists an append-only history of display events in
// SQLite. The ledger answers "what did the kiosk do overnight" after the
// fact; the reconciler never reads it to make decisions.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Event types recorded by the reconciler
const (
	EventModeTransition = "mode_transition"
	EventPowerSet       = "power_set"
	EventCacheCleanup   = "cache_cleanup"
)

// Event is one ledger row
type Event struct {
	ID        string
	Type      string
	Timestamp time.Time
	ModeFrom  string
	ModeTo    string
	SessionID string
	Detail    string
}

// Ledger wraps the SQLite event store
type Ledger struct {
	db *sql.DB
}

// Open opens the ledger database and initializes the schema
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// Append-only history. No unique constraints: every occurrence is a row.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS display_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			mode_from TEXT,
			mode_to TEXT,
			session_id TEXT,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_display_events_ts ON display_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_display_events_type_ts ON display_events(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create display_events table: %w", err)
	}
	return nil
}

// Append writes one event. The ID and timestamp are assigned here when the
// caller leaves them empty.
func (l *Ledger) Append(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO display_events (id, event_type, timestamp, mode_from, mode_to, session_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Type, ev.Timestamp.Unix(), ev.ModeFrom, ev.ModeTo, ev.SessionID, ev.Detail)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first
func (l *Ledger) Recent(limit int) ([]Event, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, mode_from, mode_to, session_id, detail
		FROM display_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts int64
		if err := rows.Scan(&ev.ID, &ev.Type, &ts, &ev.ModeFrom, &ev.ModeTo, &ev.SessionID, &ev.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Timestamp = time.Unix(ts, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteOlderThan removes events recorded before cutoff and returns the
// number of rows deleted.
func (l *Ledger) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := l.db.Exec(`DELETE FROM display_events WHERE timestamp < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}
