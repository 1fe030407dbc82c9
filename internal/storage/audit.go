package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/google/uuid"
)

// AppendAuditEntry writes one immutable audit record. Entries are never
// updated or deleted; the table is the only place commit failures surface.
func (s *SQLiteStorage) AppendAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditEntry(entry); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	orderIDs := entry.OrderIDs
	if orderIDs == nil {
		orderIDs = []string{}
	}
	orderIDsJSON, err := json.Marshal(orderIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal order ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			id, timestamp, detection_id, order_ids, payment_group_id, detected_amount,
			sender_name, bank, confidence, match_reason, status, error_message, executed_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp,
		entry.DetectionID,
		string(orderIDsJSON),
		entry.PaymentGroupID,
		entry.DetectedAmount,
		entry.SenderName,
		entry.Bank,
		entry.Confidence,
		entry.MatchReason,
		entry.Status,
		entry.ErrorMessage,
		entry.ExecutedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns the most recent audit entries, newest first.
// A non-positive limit returns everything.
func (s *SQLiteStorage) ListAuditEntries(ctx context.Context, limit int) ([]model.AuditLogEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, timestamp, detection_id, order_ids, payment_group_id, detected_amount,
		       sender_name, bank, confidence, match_reason, status, error_message, executed_by
		FROM audit_log
		ORDER BY timestamp DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditLogEntry
	for rows.Next() {
		var (
			entry        model.AuditLogEntry
			orderIDsJSON string
			groupID      sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.DetectionID,
			&orderIDsJSON,
			&groupID,
			&entry.DetectedAmount,
			&entry.SenderName,
			&entry.Bank,
			&entry.Confidence,
			&entry.MatchReason,
			&entry.Status,
			&entry.ErrorMessage,
			&entry.ExecutedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if err := json.Unmarshal([]byte(orderIDsJSON), &entry.OrderIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit order ids: %w", err)
		}
		if groupID.Valid {
			entry.PaymentGroupID = &groupID.String
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}
