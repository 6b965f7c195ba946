package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the render event database.
// Use ":memory:" for tests, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS render_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL,
		outcome TEXT NOT NULL,
		cached INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_render_events_slug ON render_events(slug);
	CREATE INDEX IF NOT EXISTS idx_render_events_created_at ON render_events(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one render event.
func (s *SQLiteStore) Append(ctx context.Context, event RenderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO render_events (slug, outcome, cached, duration_ms, created_at) VALUES (?, ?, ?, ?, ?)",
		event.Slug, event.Outcome, boolToInt(event.Cached), event.Duration.Milliseconds(), ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert render event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]RenderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, slug, outcome, cached, duration_ms, created_at FROM render_events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query render events: %w", err)
	}
	defer rows.Close()

	var events []RenderEvent
	for rows.Next() {
		var e RenderEvent
		var cached int
		var durationMS, createdAt int64
		if err := rows.Scan(&e.ID, &e.Slug, &e.Outcome, &cached, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan render event: %w", err)
		}
		e.Cached = cached != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Timestamp = time.Unix(createdAt, 0)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
