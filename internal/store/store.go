// Package store provides database access for the chatvault archive.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

//go:embed schema.sql
var schemaFS embed.FS

// PageSize is the number of messages per page. The page cache is ranked
// against it at build time and the query layer paginates with it, so the
// two must never disagree.
const PageSize = 100

// DefaultMaxConnections bounds the connection pool when no option is given.
const DefaultMaxConnections = 32

// TimeLayout is the fixed-width UTC layout used for sent_at, so that the
// lexical order of the column equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrFTSUnavailable is returned by InitSchema when the SQLite build lacks FTS5.
var ErrFTSUnavailable = errors.New("sqlite was built without FTS5")

// Store provides database operations for chatvault.
type Store struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	maxConns int
	logger   *slog.Logger
}

// WithMaxConnections sets the maximum number of pooled connections.
func WithMaxConnections(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithLogger sets the logger used for build progress.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens or creates the archive database at the given path.
func Open(dbPath string, opts ...Option) (*Store, error) {
	o := options{maxConns: DefaultMaxConnections, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open(DriverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(o.maxConns)
	db.SetMaxIdleConns(o.maxConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
		logger: o.logger,
	}, nil
}

// Reset removes the archive file at dbPath together with its WAL and
// shared-memory siblings. A missing file is not an error.
func Reset(dbPath string) error {
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection pool for read-only queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the archive file path.
func (s *Store) Path() string {
	return s.dbPath
}

// withTx executes fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InitSchema creates the archive tables, the full-text index and the page
// cache. Every statement is "IF NOT EXISTS", so running it twice is harmless.
func (s *Store) InitSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		if isSQLiteError(err, "no such module: fts5") {
			return fmt.Errorf("execute schema.sql: %w", ErrFTSUnavailable)
		}
		return fmt.Errorf("execute schema.sql: %w", err)
	}
	return nil
}

// FormatTime renders t in the stored sent_at layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored sent_at value.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sent_at %q: %w", s, err)
	}
	return t, nil
}

// Stats holds archive statistics.
type Stats struct {
	CategoryCount int64
	ChannelCount  int64
	MessageCount  int64
	PageCount     int64
	CachedCount   int64
	DatabaseSize  int64
}

// GetStats returns statistics about the archive.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM categories", &stats.CategoryCount},
		{"SELECT COUNT(*) FROM channels", &stats.ChannelCount},
		{"SELECT COUNT(*) FROM messages", &stats.MessageCount},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT channel_id, page FROM messages_pages)", &stats.PageCount},
		{"SELECT COUNT(*) FROM messages_pages", &stats.CachedCount},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			if isSQLiteError(err, "no such table") {
				continue
			}
			return nil, fmt.Errorf("get stats %q: %w", q.query, err)
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}
