package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/mattn/go-sqlite3"
)

// SavePendingDetection inserts a newly ingested detection into the pending set.
func (s *SQLiteStorage) SavePendingDetection(ctx context.Context, detection *model.PaymentDetection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDetection(detection); err != nil {
		return err
	}

	createdAt := detection.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_detections (id, amount, sender_name, bank, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		detection.ID,
		detection.Amount,
		detection.SenderName,
		detection.Bank,
		detection.RawText,
		createdAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("detection %s: %w", detection.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save pending detection: %w", err)
	}

	slog.Debug("saved pending detection", "detection_id", detection.ID, "amount", detection.Amount)
	return nil
}

// GetPendingDetection returns one pending detection by id, or
// common.ErrNotFound when it has been consumed or never existed.
func (s *SQLiteStorage) GetPendingDetection(ctx context.Context, id string) (*model.PaymentDetection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var detection model.PaymentDetection
	err := s.db.QueryRowContext(ctx, `
		SELECT id, amount, sender_name, bank, raw_text, created_at
		FROM pending_detections
		WHERE id = ?`, id).Scan(
		&detection.ID,
		&detection.Amount,
		&detection.SenderName,
		&detection.Bank,
		&detection.RawText,
		&detection.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending detection %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pending detection: %w", err)
	}

	return &detection, nil
}

// ListPendingDetections returns the full pending set, oldest first.
func (s *SQLiteStorage) ListPendingDetections(ctx context.Context) ([]model.PaymentDetection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, sender_name, bank, raw_text, created_at
		FROM pending_detections
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var detections []model.PaymentDetection
	for rows.Next() {
		var detection model.PaymentDetection
		if err := rows.Scan(
			&detection.ID,
			&detection.Amount,
			&detection.SenderName,
			&detection.Bank,
			&detection.RawText,
			&detection.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending detection: %w", err)
		}
		detections = append(detections, detection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending detections: %w", err)
	}

	return detections, nil
}

// GetVerifiedDetection returns one verified detection by id, or
// common.ErrNotFound when the detection was never verified.
func (s *SQLiteStorage) GetVerifiedDetection(ctx context.Context, id string) (*model.VerifiedDetection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var (
		verified model.VerifiedDetection
		isGroup  int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, amount, sender_name, bank, raw_text, created_at,
		       matched_target_id, matched_is_group, confidence, verification_note, verified_at
		FROM verified_detections
		WHERE id = ?`, id).Scan(
		&verified.ID,
		&verified.Amount,
		&verified.SenderName,
		&verified.Bank,
		&verified.RawText,
		&verified.CreatedAt,
		&verified.MatchedTargetID,
		&isGroup,
		&verified.Confidence,
		&verified.VerificationNote,
		&verified.VerifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verified detection %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query verified detection: %w", err)
	}

	verified.MatchedGroup = isGroup != 0
	return &verified, nil
}
