// Package history keeps a SQLite audit log of every run deletion attempt.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one deletion attempt.
type Entry struct {
	ID         int64
	SessionID  string
	Target     string
	Path       string
	Dataset    string
	RunName    string
	SizeBytes  int64
	EventCount int
	ModifiedAt time.Time
	Success    bool
	Error      string
	DeletedAt  time.Time
}

// Store manages the SQLite audit database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the audit database at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Record inserts one deletion attempt.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.DeletedAt.IsZero() {
		e.DeletedAt = time.Now()
	}

	query := `INSERT INTO deletions
		(session_id, target, path, dataset, run_name, size_bytes, event_count, modified_at, success, error_message, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		e.SessionID, e.Target, e.Path, e.Dataset, e.RunName, e.SizeBytes, e.EventCount,
		formatTime(e.ModifiedAt), e.Success, e.Error, formatTime(e.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert deletion: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}
	e.ID = id
	return nil
}

// Recent returns up to limit entries, newest first. Zero or negative limit
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, session_id, target, path, dataset, run_name, size_bytes, event_count,
		modified_at, success, error_message, deleted_at
		FROM deletions ORDER BY deleted_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deletions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var modifiedAt, deletedAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Target, &e.Path, &e.Dataset, &e.RunName,
			&e.SizeBytes, &e.EventCount, &modifiedAt, &e.Success, &e.Error, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan deletion: %w", err)
		}
		e.ModifiedAt = parseTime(modifiedAt)
		e.DeletedAt = parseTime(deletedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deletions: %w", err)
	}

	return entries, nil
}

// Totals summarizes successful deletions per target.
type Totals struct {
	Target    string
	Runs      int
	Bytes     int64
	Failures  int
	LastSweep time.Time
}

// TotalsByTarget aggregates the audit log per target, ordered by target name.
func (s *Store) TotalsByTarget(ctx context.Context) ([]Totals, error) {
	query := `SELECT target,
		COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success THEN size_bytes ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
		MAX(deleted_at)
		FROM deletions GROUP BY target ORDER BY target`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []Totals
	for rows.Next() {
		var t Totals
		var last string
		if err := rows.Scan(&t.Target, &t.Runs, &t.Bytes, &t.Failures, &last); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		t.LastSweep = parseTime(last)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals: %w", err)
	}
	return totals, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
