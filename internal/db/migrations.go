package db

import (
	"context"
	"fmt"
)

type migration struct {
	version  int
	name     string
	sqlite   string
	postgres string
}

var migrations = []migration{
	{
		version: 1,
		name:    "readings",
		sqlite: `
			CREATE TABLE IF NOT EXISTS readings (
				id TEXT PRIMARY KEY,
				category TEXT NOT NULL,
				usage_kwh REAL NOT NULL CHECK (usage_kwh >= 0),
				cost REAL NOT NULL CHECK (cost >= 0),
				period_key TEXT NOT NULL,
				recorded_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_readings_period_key ON readings(period_key);
		`,
		postgres: `
			CREATE TABLE IF NOT EXISTS readings (
				id TEXT PRIMARY KEY,
				category TEXT NOT NULL,
				usage_kwh DOUBLE PRECISION NOT NULL CHECK (usage_kwh >= 0),
				cost DOUBLE PRECISION NOT NULL CHECK (cost >= 0),
				period_key TEXT NOT NULL,
				recorded_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_readings_period_key ON readings(period_key);
		`,
	},
	{
		version: 2,
		name:    "events",
		sqlite: `
			CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				type TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				payload_json TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp, id);
			CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);
		`,
		postgres: `
			CREATE TABLE IF NOT EXISTS events (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				type TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				payload_json TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp, id);
			CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);
		`,
	},
}

// MigrateUp applies pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		stmt := m.sqlite
		if db.dialect == DialectPostgres {
			stmt = m.postgres
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, db.rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`), m.version, m.name); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		db.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("applied migration")
		applied++
	}

	return applied, nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
