package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/eventscope/internal/interval"
)

//go:embed schema.sql
var schemaSQL string

// Mirror is an in-memory SQLite copy of a log and its interval index.
type Mirror struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	ids    map[*interval.Interval]int64 // intervals.id by interval
	err    error
	detach []func()
}

// Open creates an empty in-memory mirror.
//
// The database is configured with:
//   - one connection, so every statement sees the same in-memory database
//   - in-memory journal, no fsync
//   - foreign key enforcement
func Open(logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Mirror{
		db:     db,
		logger: logger,
		ids:    make(map[*interval.Interval]int64),
	}, nil
}

// Close detaches the mirror and closes the database.
func (m *Mirror) Close() error {
	m.mu.Lock()
	detach := m.detach
	m.detach = nil
	m.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (m *Mirror) DB() *sql.DB {
	return m.db
}

// Err returns the first error encountered while mirroring, if any.
// Notifications cannot report errors, so failures are latched here.
func (m *Mirror) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mirror) fail(err error) {
	m.logger.Error("mirror write failed", "error", err)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (m *Mirror) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	if err := m.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
