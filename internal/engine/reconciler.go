// Package engine implements the reconciler that reacts to newly detected
// bank-transfer notifications and attempts to settle them against outstanding
// orders or payment groups.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/matcher"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/Veraticus/the-funds-must-clear/internal/service"
)

// Outcome is the terminal state of one reconciliation attempt. The reconciler
// never propagates errors upward: the triggering event has no caller to hand
// an error to, so every failure is absorbed here and observable only through
// the audit log and the returned outcome.
type Outcome string

// Reconciliation outcomes.
const (
	OutcomeGateClosed      Outcome = "gate-closed"
	OutcomeAlreadyConsumed Outcome = "already-consumed"
	OutcomeNoMatch         Outcome = "no-match"
	OutcomeBelowThreshold  Outcome = "below-threshold"
	OutcomeDryRun          Outcome = "dry-run"
	OutcomeCommitted       Outcome = "committed"
	OutcomeCommitFailed    Outcome = "commit-failed"
	OutcomeAborted         Outcome = "aborted"
)

// Reconciler orchestrates one reconciliation attempt end to end: gate check,
// matching, and either a dry-run audit entry or the atomic commit.
type Reconciler struct {
	storage service.Storage
	now     func() time.Time
}

// New creates a reconciler backed by the given storage.
func New(storage service.Storage) *Reconciler {
	return &Reconciler{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile runs one reconciliation attempt for a pending detection.
// Invocations for different detections may run concurrently; the atomic
// commit's status preconditions arbitrate any race over shared orders or
// groups, so a lost race surfaces as a failed audit entry rather than a
// double booking.
func (r *Reconciler) Reconcile(ctx context.Context, detectionID string) Outcome {
	detection, err := r.storage.GetPendingDetection(ctx, detectionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Re-delivered trigger for a detection another invocation already
			// consumed. Idempotent no-op.
			slog.Debug("detection not in pending set", "detection_id", detectionID)
			return OutcomeAlreadyConsumed
		}
		slog.Error("failed to load detection", "detection_id", detectionID, "error", err)
		return OutcomeAborted
	}

	// Configuration gate: the safe default for a misconfigured payment system
	// is to take no irrevocable action, so a load failure closes the gate
	// instead of raising an error.
	settings, err := r.storage.GetSettings(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			slog.Warn("failed to load reconciliation settings, treating as disabled", "error", err)
		}
		return OutcomeGateClosed
	}
	if !settings.AllowsAutomation() {
		slog.Debug("automation gate closed",
			"mode", settings.Mode,
			"enabled", settings.Enabled)
		return OutcomeGateClosed
	}

	groups, err := r.storage.GetCandidateGroups(ctx)
	if err != nil {
		slog.Error("failed to load candidate groups", "detection_id", detectionID, "error", err)
		return OutcomeAborted
	}
	orders, err := r.storage.GetCandidateOrders(ctx)
	if err != nil {
		slog.Error("failed to load candidate orders", "detection_id", detectionID, "error", err)
		return OutcomeAborted
	}

	match := matcher.Match(detection, groups, orders)
	if match == nil {
		// Not an error: the detection stays pending for a later retry
		// mechanism or manual action. No audit entry for a no-match.
		slog.Debug("no qualifying match",
			"detection_id", detectionID,
			"amount", detection.Amount,
			"groups", len(groups),
			"orders", len(orders))
		return OutcomeNoMatch
	}

	return r.execute(ctx, settings, detection, match)
}

// execute carries a qualifying match through the threshold check and then
// either the dry-run log or the atomic commit. The confidence threshold
// exists to allow softer matching strategies later without changing this
// execution path; today's exact matcher only ever produces 100.
func (r *Reconciler) execute(ctx context.Context, settings *model.ReconciliationSettings, detection *model.PaymentDetection, match *model.MatchResult) Outcome {
	if match.Confidence < settings.AutoConfirmThreshold {
		if settings.AuditNearMisses {
			entry := r.buildAuditEntry(detection, match, model.AuditStatusNearMiss)
			entry.ErrorMessage = fmt.Sprintf("confidence %d below threshold %d",
				match.Confidence, settings.AutoConfirmThreshold)
			r.appendAudit(ctx, entry)
		}
		slog.Info("match below auto-confirm threshold",
			"detection_id", detection.ID,
			"confidence", match.Confidence,
			"threshold", settings.AutoConfirmThreshold)
		return OutcomeBelowThreshold
	}

	if settings.TestMode {
		r.appendAudit(ctx, r.buildAuditEntry(detection, match, model.AuditStatusDryRun))
		slog.Info("dry run: match found, no state mutated",
			"detection_id", detection.ID,
			"target_id", match.TargetID,
			"is_group", match.IsGroup,
			"reason", match.Reason)
		return OutcomeDryRun
	}

	if err := r.storage.CommitMatch(ctx, detection, match, r.now()); err != nil {
		entry := r.buildAuditEntry(detection, match, model.AuditStatusFailed)
		entry.ErrorMessage = err.Error()
		r.appendAudit(ctx, entry)
		slog.Error("reconciliation commit failed",
			"detection_id", detection.ID,
			"target_id", match.TargetID,
			"error", err)
		return OutcomeCommitFailed
	}

	r.appendAudit(ctx, r.buildAuditEntry(detection, match, model.AuditStatusSuccess))
	return OutcomeCommitted
}

// buildAuditEntry assembles the audit record for a qualifying match. For
// group matches OrderIDs is the member list and PaymentGroupID is set; for
// individual matches OrderIDs is a single-element list.
func (r *Reconciler) buildAuditEntry(detection *model.PaymentDetection, match *model.MatchResult, status model.AuditStatus) *model.AuditLogEntry {
	entry := &model.AuditLogEntry{
		Timestamp:      r.now(),
		DetectionID:    detection.ID,
		OrderIDs:       match.OrderIDs(),
		DetectedAmount: detection.Amount,
		SenderName:     detection.SenderName,
		Bank:           detection.Bank,
		Confidence:     match.Confidence,
		MatchReason:    match.Reason,
		Status:         status,
		ExecutedBy:     model.ExecutedByReconciler,
	}
	if match.IsGroup {
		groupID := match.TargetID
		entry.PaymentGroupID = &groupID
	}
	return entry
}

// appendAudit writes an audit entry, logging rather than propagating any
// failure. The audit trail is observability, not control flow.
func (r *Reconciler) appendAudit(ctx context.Context, entry *model.AuditLogEntry) {
	if err := r.storage.AppendAuditEntry(ctx, entry); err != nil {
		slog.Error("failed to append audit entry",
			"detection_id", entry.DetectionID,
			"status", entry.Status,
			"error", err)
	}
}
