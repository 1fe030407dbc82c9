package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS pending_detections (
					id TEXT PRIMARY KEY,
					amount INTEGER NOT NULL,
					sender_name TEXT NOT NULL DEFAULT '',
					bank TEXT NOT NULL DEFAULT '',
					raw_text TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_pending_detections_created ON pending_detections(created_at)`,

				`CREATE TABLE IF NOT EXISTS verified_detections (
					id TEXT PRIMARY KEY,
					amount INTEGER NOT NULL,
					sender_name TEXT NOT NULL DEFAULT '',
					bank TEXT NOT NULL DEFAULT '',
					raw_text TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					matched_target_id TEXT NOT NULL,
					matched_is_group INTEGER NOT NULL DEFAULT 0,
					confidence INTEGER NOT NULL DEFAULT 0,
					verification_note TEXT NOT NULL DEFAULT '',
					verified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS orders (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					payment_status TEXT NOT NULL DEFAULT 'unpaid',
					exact_payment_amount INTEGER NOT NULL DEFAULT 0,
					group_payment_amount INTEGER NOT NULL DEFAULT 0,
					final_total INTEGER NOT NULL DEFAULT 0,
					payment_group_id TEXT,
					paid_at DATETIME,
					payment_method TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_orders_status ON orders(status)`,
				`CREATE INDEX idx_orders_exact_amount ON orders(exact_payment_amount)`,

				`CREATE TABLE IF NOT EXISTS payment_groups (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					exact_payment_amount INTEGER NOT NULL DEFAULT 0,
					order_ids TEXT NOT NULL DEFAULT '[]',
					paid_at DATETIME,
					payment_method TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_payment_groups_status ON payment_groups(status)`,

				`CREATE TABLE IF NOT EXISTS reconciliation_settings (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					mode TEXT NOT NULL DEFAULT 'full-auto',
					enabled INTEGER NOT NULL DEFAULT 0,
					test_mode INTEGER NOT NULL DEFAULT 1,
					auto_confirm_threshold INTEGER NOT NULL DEFAULT 90,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`INSERT INTO reconciliation_settings (id) VALUES (1)`,

				`CREATE TABLE IF NOT EXISTS audit_log (
					id TEXT PRIMARY KEY,
					timestamp DATETIME NOT NULL,
					detection_id TEXT NOT NULL,
					order_ids TEXT NOT NULL DEFAULT '[]',
					payment_group_id TEXT,
					detected_amount INTEGER NOT NULL,
					sender_name TEXT NOT NULL DEFAULT '',
					bank TEXT NOT NULL DEFAULT '',
					confidence INTEGER NOT NULL DEFAULT 0,
					match_reason TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					error_message TEXT NOT NULL DEFAULT '',
					executed_by TEXT NOT NULL
				)`,
				`CREATE INDEX idx_audit_log_detection ON audit_log(detection_id)`,
				`CREATE INDEX idx_audit_log_timestamp ON audit_log(timestamp)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add near-miss auditing toggle",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE reconciliation_settings ADD COLUMN audit_near_misses INTEGER NOT NULL DEFAULT 0`)
			return err
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the current schema version of the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
