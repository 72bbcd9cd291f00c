// Package localstore is the durable on-device catalogue cache.
//
// Rows are kept in an embedded SQLite database (ncruces/go-sqlite3, WAL mode)
// together with their sync bookkeeping:
//   - is_synced: the row's values are known to match the remote store
//   - is_deleted: the row is a tombstone awaiting remote confirmation
//
// Active reads exclude tombstones. Every mutating call notifies the live
// Watch* subscriptions of the affected kind.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"catalog-sync/internal/model"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"
)

// SchemaVersion identifies the table layout. A store written with a different
// version is dropped and recreated on Open.
const SchemaVersion = "2"

const schema = `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '0',
		category_id TEXT NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		is_synced INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_categories_created ON categories(created_at);
	CREATE INDEX IF NOT EXISTS idx_categories_sync ON categories(is_deleted, is_synced);
	CREATE INDEX IF NOT EXISTS idx_products_created ON products(created_at);
	CREATE INDEX IF NOT EXISTS idx_products_sync ON products(is_deleted, is_synced);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
`

// Store is the SQLite-backed local catalogue. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	broker *broker
	logger zerolog.Logger
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open opens or creates the store at path and brings its schema up to SchemaVersion.
// The caller owns the returned Store and must Close it.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{
		db:     db,
		path:   path,
		broker: newBroker(),
		logger: logger.With().Str("component", "localstore").Logger(),
	}

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug().Str("path", path).Msg("local store opened")
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	s.broker.close()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn().Err(err).Msg("failed to checkpoint WAL")
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close local store: %w", err)
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}

	var version string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if version != "" && version != SchemaVersion {
		s.logger.Warn().
			Str("found", version).
			Str("want", SchemaVersion).
			Msg("schema version changed, resetting local store")
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS categories; DROP TABLE IF EXISTS products;`); err != nil {
			return fmt.Errorf("failed to drop outdated tables: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// table returns the table holding rows of kind.
func table(kind model.Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
	return string(kind), nil
}
