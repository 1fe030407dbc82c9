package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
)

// GetCandidateGroups returns all payment groups still awaiting payment,
// ordered by id. Group candidates always outrank order candidates in the
// matcher, so this list is scanned first.
func (s *SQLiteStorage) GetCandidateGroups(ctx context.Context) ([]model.PaymentGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, exact_payment_amount, order_ids, paid_at, payment_method, created_at
		FROM payment_groups
		WHERE status IN (?, ?)
		ORDER BY id`,
		model.GroupStatusPending, model.GroupStatusPendingSelection)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []model.PaymentGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate groups: %w", err)
	}

	slog.Debug("retrieved candidate groups", "count", len(groups))
	return groups, nil
}

// GetGroup returns one payment group by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetGroup(ctx context.Context, id string) (*model.PaymentGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, exact_payment_amount, order_ids, paid_at, payment_method, created_at
		FROM payment_groups
		WHERE id = ?`, id)

	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment group %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// SaveGroup inserts or replaces a payment group.
func (s *SQLiteStorage) SaveGroup(ctx context.Context, group *model.PaymentGroup) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGroup(group); err != nil {
		return err
	}

	orderIDs := group.OrderIDs
	if orderIDs == nil {
		orderIDs = []string{}
	}
	orderIDsJSON, err := json.Marshal(orderIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal order ids: %w", err)
	}

	createdAt := group.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO payment_groups (
			id, status, exact_payment_amount, order_ids, paid_at, payment_method, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID,
		group.Status,
		group.ExactPaymentAmount,
		string(orderIDsJSON),
		group.PaidAt,
		group.PaymentMethod,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment group: %w", err)
	}
	return nil
}

func scanGroup(row rowScanner) (*model.PaymentGroup, error) {
	var (
		group         model.PaymentGroup
		orderIDsJSON  string
		paidAt        sql.NullTime
		paymentMethod sql.NullString
	)
	err := row.Scan(
		&group.ID,
		&group.Status,
		&group.ExactPaymentAmount,
		&orderIDsJSON,
		&paidAt,
		&paymentMethod,
		&group.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment group: %w", err)
	}

	// Malformed member lists are tolerated: the group still participates in
	// matching, the commit just has no member orders to update.
	if unmarshalErr := json.Unmarshal([]byte(orderIDsJSON), &group.OrderIDs); unmarshalErr != nil {
		slog.Warn("payment group has malformed order_ids",
			"group_id", group.ID,
			"error", unmarshalErr)
		group.OrderIDs = nil
	}

	if paidAt.Valid {
		group.PaidAt = &paidAt.Time
	}
	if paymentMethod.Valid {
		group.PaymentMethod = paymentMethod.String
	}
	return &group, nil
}
