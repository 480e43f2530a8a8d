package store

import (
	"context"
	"fmt"
)

type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				email      TEXT NOT NULL UNIQUE,
				role       TEXT NOT NULL DEFAULT 'user',
				active     BOOLEAN NOT NULL DEFAULT TRUE,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS projects (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL UNIQUE,
				created_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id          TEXT PRIMARY KEY,
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_by  TEXT NOT NULL REFERENCES users(id),
				assigned_to TEXT REFERENCES users(id),
				project_id  TEXT REFERENCES projects(id),
				completed   BOOLEAN NOT NULL DEFAULT FALSE,
				priority    TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
				due_date    TEXT,
				created_at  BIGINT NOT NULL,
				updated_at  BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to, completed)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(created_by)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`ALTER TABLE tasks ADD COLUMN completed_at BIGINT`,
		},
	},
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
		s.logger.Info().Int("version", m.version).Msg("applied migration")
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration v%d: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration v%d: %w", m.version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
		m.version, nowMillis(),
	); err != nil {
		return fmt.Errorf("migration v%d: record version: %w", m.version, err)
	}
	return tx.Commit()
}
