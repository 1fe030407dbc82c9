package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
)

// CommitMatch applies one reconciliation result as a single all-or-nothing
// write batch. Any error rolls back every step: a half-applied commit would
// mean money received with no order fulfilled, or the reverse.
//
// The batch is:
//  1. Insert the detection into the verified set, annotated with the match.
//  2. Delete it from the pending set. Zero rows affected means another
//     invocation already consumed it; the commit fails with
//     common.ErrAlreadyConsumed.
//  3. Transition the matched group or order to paid, guarded by a status
//     precondition. Zero rows affected means the target moved out of its
//     pre-paid state between match and commit; the commit fails with
//     common.ErrStateConflict rather than double-booking.
//
// Group member orders are a deliberate exception to the precondition: a
// member that is missing or already paid is skipped with a warning, matching
// the upstream behavior of marking the group paid regardless.
func (s *SQLiteStorage) CommitMatch(ctx context.Context, detection *model.PaymentDetection, match *model.MatchResult, paidAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDetection(detection); err != nil {
		return err
	}
	if err := validateMatch(match); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Step 1: verify the detection.
	isGroup := 0
	if match.IsGroup {
		isGroup = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO verified_detections (
			id, amount, sender_name, bank, raw_text, created_at,
			matched_target_id, matched_is_group, confidence, verification_note, verified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		detection.ID,
		detection.Amount,
		detection.SenderName,
		detection.Bank,
		detection.RawText,
		detection.CreatedAt,
		match.TargetID,
		isGroup,
		match.Confidence,
		verificationNote(match),
		paidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verified detection: %w", err)
	}

	// Step 2: consume the pending detection. This is the idempotency guard:
	// a re-fired trigger for an already-consumed detection affects no rows.
	res, err := tx.ExecContext(ctx, `DELETE FROM pending_detections WHERE id = ?`, detection.ID)
	if err != nil {
		return fmt.Errorf("failed to consume pending detection: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr != nil {
		return fmt.Errorf("failed to check detection consumption: %w", raErr)
	} else if affected == 0 {
		return fmt.Errorf("detection %s: %w", detection.ID, common.ErrAlreadyConsumed)
	}

	// Steps 3/4: transition the matched target.
	if match.IsGroup {
		err = s.commitGroupTx(ctx, tx, match.Group, paidAt)
	} else {
		err = s.commitOrderTx(ctx, tx, match.TargetID, nil, paidAt)
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}

	slog.Info("committed reconciliation match",
		"detection_id", detection.ID,
		"target_id", match.TargetID,
		"is_group", match.IsGroup,
		"amount", detection.Amount)
	return nil
}

func (s *SQLiteStorage) commitGroupTx(ctx context.Context, tx *sql.Tx, group *model.PaymentGroup, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE payment_groups
		SET status = ?, paid_at = ?, payment_method = ?
		WHERE id = ? AND status IN (?, ?)`,
		model.GroupStatusPaid,
		paidAt,
		model.PaymentMethodTransfer,
		group.ID,
		model.GroupStatusPending,
		model.GroupStatusPendingSelection,
	)
	if err != nil {
		return fmt.Errorf("failed to mark group paid: %w", err)
	}
	if affected, raErr := res.RowsAffected(); raErr != nil {
		return fmt.Errorf("failed to check group transition: %w", raErr)
	} else if affected == 0 {
		return fmt.Errorf("payment group %s: %w", group.ID, common.ErrStateConflict)
	}

	if len(group.OrderIDs) == 0 {
		slog.Warn("payment group committed with no member orders", "group_id", group.ID)
		return nil
	}

	for _, orderID := range group.OrderIDs {
		if err := s.commitOrderTx(ctx, tx, orderID, &group.ID, paidAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) commitOrderTx(ctx context.Context, tx *sql.Tx, orderID string, groupID *string, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, payment_status = ?, paid_at = ?, payment_method = ?,
		    payment_group_id = COALESCE(?, payment_group_id)
		WHERE id = ? AND status IN (?, ?)`,
		model.OrderStatusPaid,
		model.PaymentStatusPaid,
		paidAt,
		model.PaymentMethodTransfer,
		groupID,
		orderID,
		model.OrderStatusPending,
		model.OrderStatusWaitingPayment,
	)
	if err != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", orderID, err)
	}

	affected, raErr := res.RowsAffected()
	if raErr != nil {
		return fmt.Errorf("failed to check order transition: %w", raErr)
	}
	if affected == 0 {
		if groupID != nil {
			// Group members are best-effort: the group itself is the matched
			// target, and upstream marks it paid even when a member is
			// missing or already settled.
			slog.Warn("skipping group member order not in a payable state",
				"order_id", orderID,
				"group_id", *groupID)
			return nil
		}
		return fmt.Errorf("order %s: %w", orderID, common.ErrStateConflict)
	}
	return nil
}

// verificationNote builds the human-readable annotation stored with a
// verified detection.
func verificationNote(match *model.MatchResult) string {
	if match.IsGroup {
		return fmt.Sprintf("Auto-verified against payment group %s (%d orders): %s",
			match.TargetID, len(match.Group.OrderIDs), match.Reason)
	}
	return fmt.Sprintf("Auto-verified against order %s: %s", match.TargetID, match.Reason)
}
