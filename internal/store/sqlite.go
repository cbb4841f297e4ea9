package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/forecast-drift/internal/forecast"
)

// SQLiteStore persists snapshots as JSON documents in a SQLite file.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.RWMutex
	retention int
	maxAge    time.Duration
	now       func() time.Time
}

// OpenSQLite opens (and creates) the database at path. Existing history is
// re-trimmed to retention, so reopening with a lower limit drops old rows.
func OpenSQLite(path string, retention int, maxAge time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
  id           TEXT PRIMARY KEY,
  location_id  TEXT NOT NULL,
  fetched_at   INTEGER NOT NULL,
  payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_location ON snapshots(location_id, fetched_at DESC);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s := &SQLiteStore{
		db:     db,
		maxAge: maxAge,
		now:    time.Now,
	}
	if err := s.ApplyRetention(context.Background(), retention); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retention
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot upserts the snapshot by id and trims its location.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot forecast.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// REPLACE assigns a fresh rowid, so among equal timestamps the latest
	// write sorts first.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (id, location_id, fetched_at, payload) VALUES (?, ?, ?, ?)`,
		snapshot.ID, snapshot.Location.Key(), snapshot.FetchedAt.UnixNano(), string(payload),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if err := s.trim(ctx, tx, snapshot.Location.Key(), s.limit()); err != nil {
		return err
	}
	return tx.Commit()
}

// trim keeps the newest limit rows of a location, then drops rows older than
// maxAge except the newest one.
func (s *SQLiteStore) trim(ctx context.Context, tx *sql.Tx, locationID string, limit int) error {
	if _, err := tx.ExecContext(ctx, `
DELETE FROM snapshots WHERE location_id = ? AND id NOT IN (
  SELECT id FROM snapshots WHERE location_id = ? ORDER BY fetched_at DESC, rowid DESC LIMIT ?
)`, locationID, locationID, limit); err != nil {
		return fmt.Errorf("apply retention: %w", err)
	}
	if s.maxAge <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.maxAge).UnixNano()
	if _, err := tx.ExecContext(ctx, `
DELETE FROM snapshots WHERE location_id = ? AND fetched_at < ? AND id NOT IN (
  SELECT id FROM snapshots WHERE location_id = ? ORDER BY fetched_at DESC, rowid DESC LIMIT 1
)`, locationID, cutoff, locationID); err != nil {
		return fmt.Errorf("apply max age: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, locationID string) ([]forecast.Snapshot, error) {
	return s.query(ctx, `SELECT payload FROM snapshots WHERE location_id = ? ORDER BY fetched_at DESC, rowid DESC`, locationID)
}

func (s *SQLiteStore) GetLatest(ctx context.Context, locationID string) (forecast.Snapshot, error) {
	snaps, err := s.query(ctx, `SELECT payload FROM snapshots WHERE location_id = ? ORDER BY fetched_at DESC, rowid DESC LIMIT 1`, locationID)
	if err != nil {
		return forecast.Snapshot{}, err
	}
	if len(snaps) == 0 {
		return forecast.Snapshot{}, ErrNotFound
	}
	return snaps[0], nil
}

func (s *SQLiteStore) GetRange(ctx context.Context, locationID string, from, to time.Time) ([]forecast.Snapshot, error) {
	snaps, err := s.query(ctx, `
SELECT payload FROM snapshots
WHERE location_id = ? AND fetched_at >= ? AND fetched_at <= ?
ORDER BY fetched_at DESC, rowid DESC`, locationID, from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return snaps, nil
}

// ApplyRetention re-trims every location to limit and makes it the new default.
func (s *SQLiteStore) ApplyRetention(ctx context.Context, limit int) error {
	limit = ClampRetention(limit)
	s.mu.Lock()
	s.retention = limit
	s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT location_id FROM snapshots`)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		if err := s.trim(ctx, tx, id, limit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]forecast.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []forecast.Snapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap forecast.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
