package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_stored_files",
		SQL: `CREATE TABLE IF NOT EXISTS stored_files (
  id                TEXT         PRIMARY KEY,
  name              TEXT         NOT NULL,
  original_filename TEXT         NOT NULL,
  content_type      TEXT         NOT NULL,
  size              BIGINT       NOT NULL CHECK (size >= 0 AND size <= 2147483647),
  payload           BYTEA        NOT NULL,
  context           VARCHAR(255),
  metadata          VARCHAR(255),
  created_at        TIMESTAMPTZ  NOT NULL,
  expires_at        TIMESTAMPTZ  NOT NULL,
  CHECK (expires_at >= created_at)
);`,
	},
	{
		Name: "create_index_stored_files_context",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_stored_files_context ON stored_files (context, created_at);`,
	},
	{
		Name: "create_index_stored_files_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_stored_files_expires_at ON stored_files (expires_at);`,
	},
}

// EnsureMigrated checks if the 'stored_files' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "event", "db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public.stored_files') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed",
			"event", "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			"event", "db_migration_skip",
			"status", "success",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "event", "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"event", "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"event", "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"event", "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
