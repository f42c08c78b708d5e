package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// SchemaVersion is the layout version written by this build.
const SchemaVersion = 1

// ErrSchemaTooNew is returned when the database was written by a newer build.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports")

// Migrate runs all schema migrations and records the schema version.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return checkSchemaVersion(db)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	// Pair ids are stored canonically: entity_a < entity_b.
	`CREATE TABLE IF NOT EXISTS pending_ratings (
		poll       TEXT NOT NULL,
		entity_a   TEXT NOT NULL,
		entity_b   TEXT NOT NULL,
		criterion  TEXT NOT NULL,
		score      INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (poll, entity_a, entity_b, criterion),
		CHECK (entity_a < entity_b)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_pending_ratings_pair ON pending_ratings(poll, entity_a, entity_b)`,

	// criteria_order is NULL when no order was ever saved.
	`CREATE TABLE IF NOT EXISTS preferences (
		poll             TEXT PRIMARY KEY,
		criteria_order   TEXT,
		always_displayed TEXT NOT NULL DEFAULT '[]'
	)`,
}

func checkSchemaVersion(db *sql.DB) error {
	ctx := context.Background()

	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = db.ExecContext(ctx,
			`INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)`, strconv.Itoa(SchemaVersion))
		if err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	version, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parsing schema version %q: %w", raw, err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("found version %d, supported %d: %w", version, SchemaVersion, ErrSchemaTooNew)
	}
	return nil
}
