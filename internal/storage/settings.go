package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
)

// GetSettings returns the reconciliation settings singleton, or
// common.ErrNotFound when the row is absent. Callers treat both absence and
// load failure as "gate closed".
func (s *SQLiteStorage) GetSettings(ctx context.Context) (*model.ReconciliationSettings, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		settings        model.ReconciliationSettings
		enabled         int
		testMode        int
		auditNearMisses int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT mode, enabled, test_mode, auto_confirm_threshold, audit_near_misses, updated_at
		FROM reconciliation_settings
		WHERE id = 1`).Scan(
		&settings.Mode,
		&enabled,
		&testMode,
		&settings.AutoConfirmThreshold,
		&auditNearMisses,
		&settings.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation settings: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	settings.Enabled = enabled != 0
	settings.TestMode = testMode != 0
	settings.AuditNearMisses = auditNearMisses != 0
	return &settings, nil
}

// SaveSettings upserts the settings singleton.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings *model.ReconciliationSettings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSettings(settings); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_settings (id, mode, enabled, test_mode, auto_confirm_threshold, audit_near_misses, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			enabled = excluded.enabled,
			test_mode = excluded.test_mode,
			auto_confirm_threshold = excluded.auto_confirm_threshold,
			audit_near_misses = excluded.audit_near_misses,
			updated_at = excluded.updated_at`,
		settings.Mode,
		settings.Enabled,
		settings.TestMode,
		settings.AutoConfirmThreshold,
		settings.AuditNearMisses,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
