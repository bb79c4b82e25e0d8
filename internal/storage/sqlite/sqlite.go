// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/walletledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps statements ordered
	// and avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nowMillis returns the current time as Unix milliseconds.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// nullString stores "" as NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rangeClause renders the datetime bounds, ordering and limit of q.
// The returned fragment starts with " AND" when a bound is present.
func rangeClause(q storage.RangeQuery) (string, []interface{}) {
	var b strings.Builder
	var args []interface{}

	if q.Start != nil {
		if q.IncludeStart {
			b.WriteString(" AND datetime >= ?")
		} else {
			b.WriteString(" AND datetime > ?")
		}
		args = append(args, *q.Start)
	}
	if q.End != nil {
		if q.IncludeEnd {
			b.WriteString(" AND datetime <= ?")
		} else {
			b.WriteString(" AND datetime < ?")
		}
		args = append(args, *q.End)
	}

	if q.Descending {
		b.WriteString(" ORDER BY datetime DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY datetime ASC, id ASC")
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	return b.String(), args
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(", ?", n)
}
