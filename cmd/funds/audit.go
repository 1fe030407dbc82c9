package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit log entries",
		Long: `Show the reconciliation audit trail, newest first. Every attempt that
produced a qualifying match appears here exactly once, whether it was a
dry run, a committed settlement, a failure, or an audited near miss.`,
		RunE: runAudit,
	}

	cmd.Flags().Int("limit", 20, "maximum number of entries to show (0 for all)")

	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListAuditEntries(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list audit entries: %w", err)
	}

	if len(entries) == 0 {
		slog.Info("audit log is empty")
		return nil
	}

	for _, entry := range entries {
		groupID := ""
		if entry.PaymentGroupID != nil {
			groupID = *entry.PaymentGroupID
		}
		slog.Info("audit entry",
			"timestamp", entry.Timestamp.Format("2006-01-02 15:04:05"),
			"status", entry.Status,
			"detection_id", entry.DetectionID,
			"amount", entry.DetectedAmount,
			"order_ids", entry.OrderIDs,
			"group_id", groupID,
			"confidence", entry.Confidence,
			"reason", entry.MatchReason,
			"error", entry.ErrorMessage)
	}

	return nil
}
