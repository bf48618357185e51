package storage

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_images_table",
		up: `
			CREATE TABLE IF NOT EXISTS images (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL,
				thumbnail_url TEXT NOT NULL DEFAULT '',
				alt_text TEXT NOT NULL DEFAULT '',
				mime_type TEXT NOT NULL DEFAULT '',
				position INTEGER NOT NULL,
				updated_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_images_position
			ON images(position);
		`,
	},
	{
		version: 2,
		name:    "create_images_missing_alt_index",
		up: `
			CREATE INDEX IF NOT EXISTS idx_images_missing_alt
			ON images(position)
			WHERE alt_text = '';
		`,
	},
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
