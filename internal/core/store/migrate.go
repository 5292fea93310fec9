package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// schemaVersion is recorded in store_meta after a successful migration.
// Version 2 added snapshots.is_error.
const schemaVersion = "2"

type migration struct {
	name string
	run  func(ctx context.Context, db *sql.DB) error
}

func execStmt(stmt string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	}
}

var migrations = []migration{
	{"create snapshots", execStmt(`CREATE TABLE IF NOT EXISTS snapshots (
		domain TEXT PRIMARY KEY,
		snapshot_json TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	)`)},
	{"create store_meta", execStmt(`CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)},
	{"add snapshots.is_error", addColumn("snapshots", "is_error", "INTEGER NOT NULL DEFAULT 0")},
	{"record schema version", func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO store_meta (key, value) VALUES ('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, schemaVersion)
		return err
	}},
}

// addColumn adds a column unless a previous run already did.
func addColumn(table, column, def string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		var present int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&present)
		if err != nil || present > 0 {
			return err
		}
		_, err = db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def))
		return err
	}
}

// Migrate brings the schema up to schemaVersion. Every step is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, m := range migrations {
		if err := m.run(ctx, s.DB); err != nil {
			return fmt.Errorf("store migration %q: %w", m.name, err)
		}
	}
	return nil
}

// SchemaVersion returns the recorded schema version, or "" before Migrate.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New("store is not initialized")
	}
	var version string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
