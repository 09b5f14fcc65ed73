/*
Package sqlite provides a SQLite-backed generic.DocumentStore.

PURPOSE:
  Persists one serialized household document per owner. The payload is
  opaque here: encoding, decoding and conflict resolution live in
  household/document.go and household/sync.go.

KEY TABLES:
  documents:        the current document of each owner
  document_history: documents replaced by Put, newest first, capped at
                    HistoryLimit rows per owner

SCHEMA:
  Versioned migrations under migrations/ are embedded in the binary and
  applied with golang-migrate on New(). Migrations run on their own
  connection, which the migrate driver closes when done.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

IN-MEMORY:
  ":memory:" maps to a uniquely named shared-cache memory database, so the
  migration connection and the store see the same schema. The data lives
  as long as the Store stays open.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  syncer := household.NewSyncer(store, logger)

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/household-ledger/generic"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// HistoryLimit is how many replaced documents are kept per owner.
const HistoryLimit = 20

const timeLayout = time.RFC3339Nano

// Store implements generic.DocumentStore using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ generic.DocumentStore = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = fmt.Sprintf("file:ledger-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// One long-lived connection keeps the shared-cache database alive
		// and avoids table-lock errors between connections.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(dsn string) error {
	// The migrate driver owns and closes this connection.
	migrateDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	driver, err := migratesqlite3.WithInstance(migrateDB, &migratesqlite3.Config{})
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create sqlite3 driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// DOCUMENT STORE (generic.DocumentStore interface)
// =============================================================================

// Get returns the owner's current document.
func (s *Store) Get(ctx context.Context, ownerID string) (*generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec generic.Record
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT owner_id, version, modified_at, payload, updated_at FROM documents WHERE owner_id = ?",
		ownerID,
	).Scan(&rec.OwnerID, &rec.Version, &rec.ModifiedAt, &rec.Payload, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", ownerID, err)
	}
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &rec, nil
}

// Put inserts or replaces the owner's document. A replaced document is
// moved to document_history in the same transaction.
func (s *Store) Put(ctx context.Context, rec generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Format(timeLayout)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_history (owner_id, version, modified_at, payload, replaced_at)
			SELECT owner_id, version, modified_at, payload, ?
			FROM documents WHERE owner_id = ?
		`, now, rec.OwnerID)
		if err != nil {
			return fmt.Errorf("archive previous document: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (owner_id, version, modified_at, payload, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(owner_id) DO UPDATE SET
				version = excluded.version,
				modified_at = excluded.modified_at,
				payload = excluded.payload,
				updated_at = excluded.updated_at
		`, rec.OwnerID, rec.Version, rec.ModifiedAt, rec.Payload, now)
		if err != nil {
			return fmt.Errorf("put document %s: %w", rec.OwnerID, err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM document_history
			WHERE owner_id = ? AND id NOT IN (
				SELECT id FROM document_history WHERE owner_id = ? ORDER BY id DESC LIMIT ?
			)
		`, rec.OwnerID, rec.OwnerID, HistoryLimit)
		if err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
		return nil
	})
}

// Delete removes the owner's document and its history.
func (s *Store) Delete(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE owner_id = ?", ownerID)
		if err != nil {
			return fmt.Errorf("delete document %s: %w", ownerID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return generic.ErrRecordNotFound
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_history WHERE owner_id = ?", ownerID); err != nil {
			return fmt.Errorf("delete history %s: %w", ownerID, err)
		}
		return nil
	})
}

// List returns every owner's record without payloads, ordered by owner.
func (s *Store) List(ctx context.Context) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT owner_id, version, modified_at, updated_at FROM documents ORDER BY owner_id",
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var result []generic.Record
	for rows.Next() {
		var rec generic.Record
		var updatedAt string
		if err := rows.Scan(&rec.OwnerID, &rec.Version, &rec.ModifiedAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// =============================================================================
// HISTORY
// =============================================================================

// History returns the owner's replaced documents, newest first. UpdatedAt
// holds the time each one was replaced.
func (s *Store) History(ctx context.Context, ownerID string, limit int) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, version, modified_at, payload, replaced_at
		FROM document_history
		WHERE owner_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", ownerID, err)
	}
	defer rows.Close()

	var result []generic.Record
	for rows.Next() {
		var rec generic.Record
		var replacedAt string
		if err := rows.Scan(&rec.OwnerID, &rec.Version, &rec.ModifiedAt, &rec.Payload, &replacedAt); err != nil {
			return nil, err
		}
		rec.UpdatedAt, _ = time.Parse(timeLayout, replacedAt)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
