// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Detection operations
	SavePendingDetection(ctx context.Context, detection *model.PaymentDetection) error
	GetPendingDetection(ctx context.Context, id string) (*model.PaymentDetection, error)
	ListPendingDetections(ctx context.Context) ([]model.PaymentDetection, error)
	GetVerifiedDetection(ctx context.Context, id string) (*model.VerifiedDetection, error)

	// Candidate queries. Both return rows ordered by id ascending so that the
	// matcher's first-hit-wins scan is a documented tie-break rather than an
	// accident of query planning.
	GetCandidateOrders(ctx context.Context) ([]model.Order, error)
	GetCandidateGroups(ctx context.Context) ([]model.PaymentGroup, error)

	// Order and group operations
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	SaveOrder(ctx context.Context, order *model.Order) error
	GetGroup(ctx context.Context, id string) (*model.PaymentGroup, error)
	SaveGroup(ctx context.Context, group *model.PaymentGroup) error

	// Settings operations. GetSettings returns common.ErrNotFound when the
	// singleton row is absent.
	GetSettings(ctx context.Context) (*model.ReconciliationSettings, error)
	SaveSettings(ctx context.Context, settings *model.ReconciliationSettings) error

	// Audit operations. Entries are append-only; there is no update or delete.
	AppendAuditEntry(ctx context.Context, entry *model.AuditLogEntry) error
	ListAuditEntries(ctx context.Context, limit int) ([]model.AuditLogEntry, error)

	// CommitMatch applies one reconciliation result as a single all-or-nothing
	// write: verify the detection, consume it from the pending set, and
	// transition the matched order or group (plus group members) to paid.
	CommitMatch(ctx context.Context, detection *model.PaymentDetection, match *model.MatchResult, paidAt time.Time) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations that may fail
// transiently.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
