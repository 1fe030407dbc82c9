// Package model defines the data contracts shared by the reconciliation
// engine: detections, orders, payment groups, operator settings, and the
// audit trail.
package model

import "time"

// AuditStatus records the terminal outcome of one reconciliation attempt.
type AuditStatus string

// Audit entry statuses.
const (
	AuditStatusDryRun   AuditStatus = "dry-run"
	AuditStatusSuccess  AuditStatus = "success"
	AuditStatusFailed   AuditStatus = "failed"
	AuditStatusNearMiss AuditStatus = "near-miss"
)

// ExecutedByReconciler identifies the automated actor in audit entries.
const ExecutedByReconciler = "auto-reconciler"

// AuditLogEntry is an immutable, append-only record of one reconciliation
// attempt that produced a qualifying match. No entry is ever written for a
// detection that matched nothing.
type AuditLogEntry struct {
	Timestamp      time.Time
	PaymentGroupID *string
	ID             string
	DetectionID    string
	SenderName     string
	Bank           string
	MatchReason    string
	ErrorMessage   string
	ExecutedBy     string
	Status         AuditStatus
	OrderIDs       []string
	DetectedAmount int64
	Confidence     int
}
