package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/navilink-core/internal/status"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200

	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// busyTimeout is the maximum wait for a database lock in ms.
	busyTimeout = 5000
)

const schema = `
CREATE TABLE IF NOT EXISTS status_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id  TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_status_history_device_time
	ON status_history (device_id, created_at);
`

// Entry is one stored status snapshot.
type Entry struct {
	ID        int64
	DeviceID  string
	Status    status.DeviceStatus
	CreatedAt time.Time
}

// Store is a SQLite-backed status history. Safe for concurrent use;
// SQLite serializes writers internally.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database and ensures the schema
// exists. Pass ":memory:" for an ephemeral store.
//
// Returns:
//   - *Store: Ready for Record/Recent
//   - error: If the file cannot be created or the schema applied
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: database path is required")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("history: creating database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeout)
	if path == ":memory:" {
		connStr = ":memory:"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}

	// SQLite supports one writer; a single pooled connection avoids
	// lock contention (and keeps :memory: databases coherent).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one status snapshot.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier the snapshot belongs to
//   - snapshot: Normalized status to store
func (s *Store) Record(ctx context.Context, deviceID string, snapshot status.DeviceStatus) error {
	if deviceID == "" {
		return fmt.Errorf("history: device id is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("history: marshalling status: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO status_history (device_id, status) VALUES (?, ?)",
		deviceID,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("history: inserting snapshot: %w", err)
	}
	return nil
}

// Recent returns the latest snapshots for a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier
//   - limit: Maximum entries (default 50, max 200)
func (s *Store) Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("history: device id is required")
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, status, created_at
		 FROM status_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: querying snapshots: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var payload string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scanning snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Status); err != nil {
			return nil, fmt.Errorf("history: unmarshalling status: %w", err)
		}

		timestamp, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating snapshots: %w", err)
	}
	return entries, nil
}

// Prune deletes snapshots older than the given retention.
//
// Returns:
//   - int64: Number of rows deleted
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("history: retention must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM status_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("history: deleting snapshots: %w", err)
	}
	return result.RowsAffected()
}

// parseTimestamp handles both RFC3339 and SQLite's space-separated
// datetime form.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("history: created_at is empty")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSuffix(value, "Z"))
	if err != nil {
		return time.Time{}, fmt.Errorf("history: parsing created_at %q: %w", value, err)
	}
	return t, nil
}
