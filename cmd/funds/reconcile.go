package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-funds-must-clear/internal/engine"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <detection-id>",
		Short: "Run one reconciliation attempt for a pending detection",
		Long: `Run the full reconciliation pipeline for a single pending detection:
configuration gate, matching, and either a dry run or the atomic commit.
The outcome is reported but never treated as a command failure; a
detection that matches nothing simply stays pending.`,
		Args: cobra.ExactArgs(1),
		RunE: runReconcile,
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	detectionID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	outcome := engine.New(store).Reconcile(ctx, detectionID)
	slog.Info("reconciliation attempt finished",
		"detection_id", detectionID,
		"outcome", outcome)
	return nil
}
