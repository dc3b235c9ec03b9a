// Package store implements the per-namespace persistent world state.
//
// Each namespace owns one SQLite database file under the data directory.
// Schema creation goes through golang-migrate with migration files embedded
// into the binary; an existing database is never silently migrated — a
// schema version mismatch is fatal at open.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ExpectedSchemaVersion must match the PRAGMA user_version set by the
// newest migration and the schema_version key in meta.
const ExpectedSchemaVersion = 1

// Store owns the database handle and the writer lock of one namespace.
// Admission inserts, the completeness check, and MERGE all serialize on the
// same Store; different namespaces proceed independently.
type Store struct {
	namespace string
	db        *sql.DB

	// mu is the per-namespace writer lock. Readers go straight to SQLite
	// (WAL mode: readers never block the writer and vice versa).
	mu sync.Mutex
}

// Namespace returns the namespace this store belongs to.
func (s *Store) Namespace() string { return s.namespace }

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Open opens an existing namespace database and verifies its schema
// version. It fails with ErrNamespaceNotFound when no database file exists.
func Open(ctx context.Context, dataDir, namespace string) (*Store, error) {
	path, err := DBPath(dataDir, namespace)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{namespace: namespace, db: db}
	if err := s.schemaVersionCheck(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Create initializes a new namespace database: applies the embedded
// migrations, seeds meta, and fills the grid with blank tiles. It fails
// with ErrNamespaceExists when the database file is already present.
func Create(ctx context.Context, dataDir, namespace string, width, height int, goal string, epoch int) (*Store, error) {
	path, err := DBPath(dataDir, namespace)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceExists, namespace)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("world dimensions must be positive, got %dx%d", width, height)
	}
	if epoch < 1 {
		return nil, fmt.Errorf("epoch must be a positive integer, got %d", epoch)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{namespace: namespace, db: db}
	if err := runMigrations(db, namespace); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := s.schemaVersionCheck(ctx); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := s.Update(ctx, func(q *Queries) error {
		return q.seedWorld(ctx, width, height, goal, epoch)
	}); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("seed world: %w", err)
	}
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// schemaVersionCheck reads both the native PRAGMA user_version and the
// schema_version meta key (when present) and rejects any mismatch.
func (s *Store) schemaVersionCheck(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version != ExpectedSchemaVersion {
		return &SchemaVersionError{Namespace: s.namespace, Expected: ExpectedSchemaVersion, Got: version}
	}

	// A freshly created database has no meta rows yet; seeding writes the key.
	var metaVersion sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'schema_version'").Scan(&metaVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("read meta schema_version: %w", err)
	}
	if metaVersion.Valid && metaVersion.String != fmt.Sprint(ExpectedSchemaVersion) {
		return &SchemaVersionError{Namespace: s.namespace, Expected: ExpectedSchemaVersion, Got: atoiOr(metaVersion.String, -1)}
	}
	return nil
}

// View runs fn inside a read transaction. Readers may see the snapshot
// from just before an in-progress MERGE but never a half-merged state.
func (s *Store) View(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Queries{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Update runs fn inside a write transaction under the namespace writer
// lock. The transaction is all-or-nothing: any error from fn rolls back
// every change. Lock-upgrade contention (SQLITE_BUSY) retries the whole
// transaction with exponential backoff.
func (s *Store) Update(ctx context.Context, fn func(q *Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return retryableIfBusy(fmt.Errorf("begin write tx: %w", err))
		}
		if err := fn(&Queries{tx: tx}); err != nil {
			_ = tx.Rollback()
			return retryableIfBusy(err)
		}
		if err := tx.Commit(); err != nil {
			return retryableIfBusy(fmt.Errorf("commit: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(attempt, backoff.WithContext(bo, ctx))
}

// retryableIfBusy keeps SQLITE_BUSY errors retryable and marks everything
// else permanent so business-logic failures surface immediately.
func retryableIfBusy(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return err
	}
	return backoff.Permanent(err)
}

func atoiOr(s string, fallback int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return fallback
	}
	return n
}
