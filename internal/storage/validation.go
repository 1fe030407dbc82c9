// Package storage provides the data persistence layer for the reconciliation engine.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-funds-must-clear/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDetection = errors.New("invalid detection")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidGroup     = errors.New("invalid payment group")
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrInvalidAudit     = errors.New("invalid audit entry")
	ErrInvalidMatch     = errors.New("invalid match result")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDetection validates a payment detection.
func validateDetection(detection *model.PaymentDetection) error {
	if detection == nil {
		return fmt.Errorf("%w: detection", ErrNilParameter)
	}
	if detection.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidDetection)
	}
	if detection.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidDetection)
	}
	return nil
}

// validateOrder validates an order.
func validateOrder(order *model.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order", ErrNilParameter)
	}
	if order.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidOrder)
	}
	if order.Status == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidOrder)
	}
	return nil
}

// validateGroup validates a payment group.
func validateGroup(group *model.PaymentGroup) error {
	if group == nil {
		return fmt.Errorf("%w: group", ErrNilParameter)
	}
	if group.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidGroup)
	}
	if group.Status == "" {
		return fmt.Errorf("%w: missing status", ErrInvalidGroup)
	}
	return nil
}

// validateSettings validates reconciliation settings.
func validateSettings(settings *model.ReconciliationSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings", ErrNilParameter)
	}
	if settings.AutoConfirmThreshold < 0 || settings.AutoConfirmThreshold > 100 {
		return fmt.Errorf("%w: threshold must be between 0 and 100", ErrInvalidSettings)
	}
	return nil
}

// validateAuditEntry validates an audit log entry.
func validateAuditEntry(entry *model.AuditLogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.DetectionID == "" {
		return fmt.Errorf("%w: missing detection ID", ErrInvalidAudit)
	}
	if entry.ExecutedBy == "" {
		return fmt.Errorf("%w: missing executed_by", ErrInvalidAudit)
	}

	switch entry.Status {
	case model.AuditStatusDryRun,
		model.AuditStatusSuccess,
		model.AuditStatusFailed,
		model.AuditStatusNearMiss:
		// Valid status
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAudit, entry.Status)
	}
	return nil
}

// validateMatch validates a match result before it is committed.
func validateMatch(match *model.MatchResult) error {
	if match == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if match.TargetID == "" {
		return fmt.Errorf("%w: missing target ID", ErrInvalidMatch)
	}
	if match.IsGroup && match.Group == nil {
		return fmt.Errorf("%w: group match without group data", ErrInvalidMatch)
	}
	return nil
}
