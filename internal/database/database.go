// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// migration is one step of the schema ladder. Steps run in ascending version
// order, each inside its own transaction, and are recorded in schema_migrations
// so restarts skip what already ran.
type migration struct {
	version     int
	description string
	sql         string
}

var migrations = []migration{
	{
		version:     1,
		description: "create settings table",
		sql: `
			CREATE TABLE settings (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
}

// DB wraps the SQLite handle and satisfies dbinterface.Querier, so the stores
// never see the concrete driver.
type DB struct {
	handle *sql.DB
}

// New opens (or creates) the SQLite database at path, applies the recommended
// pragmas, and runs any pending migrations.
func New(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL keeps
	// readers concurrent with the writer.
	handle.SetMaxOpenConns(1)

	if err := handle.PingContext(context.Background()); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping database %q: %w", path, err)
	}

	// modernc.org/sqlite takes pragmas as SQL statements, not DSN params
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to exec %q: %w", pragma, err)
		}
	}

	db := &DB{handle: handle}

	if err := db.migrate(context.Background()); err != nil {
		handle.Close()
		return nil, err
	}

	return db, nil
}

// Conn returns the underlying handle for callers that need *sql.DB directly.
func (db *DB) Conn() *sql.DB {
	return db.handle
}

func (db *DB) Close() error {
	return db.handle.Close()
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.handle.ExecContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.handle.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.handle.QueryRowContext(ctx, query, args...)
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.handle.BeginTx(ctx, opts)
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.handle.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := db.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}

		log.Debug().Int("version", m.version).Str("description", m.description).Msg("Applied database migration")
	}

	return nil
}

func (db *DB) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := db.handle.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?",
		version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

func (db *DB) applyMigration(ctx context.Context, m migration) error {
	tx, err := db.handle.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		m.version, m.description,
	); err != nil {
		return err
	}

	return tx.Commit()
}
