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
)

// GetCandidateOrders returns all orders still awaiting payment, ordered by id
// so the matcher's first-hit-wins scan is deterministic.
func (s *SQLiteStorage) GetCandidateOrders(ctx context.Context) ([]model.Order, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, payment_status, exact_payment_amount, group_payment_amount,
		       final_total, payment_group_id, paid_at, payment_method, created_at
		FROM orders
		WHERE status IN (?, ?)
		ORDER BY id`,
		model.OrderStatusPending, model.OrderStatusWaitingPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate orders: %w", err)
	}

	slog.Debug("retrieved candidate orders", "count", len(orders))
	return orders, nil
}

// GetOrder returns one order by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, payment_status, exact_payment_amount, group_payment_amount,
		       final_total, payment_group_id, paid_at, payment_method, created_at
		FROM orders
		WHERE id = ?`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// SaveOrder inserts or replaces an order. This exists for fixtures and the
// admin surface; the reconciler itself only mutates orders through CommitMatch.
func (s *SQLiteStorage) SaveOrder(ctx context.Context, order *model.Order) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOrder(order); err != nil {
		return err
	}

	paymentStatus := order.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = model.PaymentStatusUnpaid
	}
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders (
			id, status, payment_status, exact_payment_amount, group_payment_amount,
			final_total, payment_group_id, paid_at, payment_method, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Status,
		paymentStatus,
		order.ExactPaymentAmount,
		order.GroupPaymentAmount,
		order.FinalTotal,
		order.PaymentGroupID,
		order.PaidAt,
		order.PaymentMethod,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		order         model.Order
		paymentGroup  sql.NullString
		paidAt        sql.NullTime
		paymentMethod sql.NullString
	)
	err := row.Scan(
		&order.ID,
		&order.Status,
		&order.PaymentStatus,
		&order.ExactPaymentAmount,
		&order.GroupPaymentAmount,
		&order.FinalTotal,
		&paymentGroup,
		&paidAt,
		&paymentMethod,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if paymentGroup.Valid {
		order.PaymentGroupID = &paymentGroup.String
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if paymentMethod.Valid {
		order.PaymentMethod = paymentMethod.String
	}
	return &order, nil
}
