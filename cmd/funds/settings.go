package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change reconciliation settings",
	}

	cmd.AddCommand(settingsShowCmd())
	cmd.AddCommand(settingsSetCmd())

	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current reconciliation settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			settings, err := store.GetSettings(ctx)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					slog.Warn("no settings stored; automation is disabled")
					return nil
				}
				return fmt.Errorf("failed to load settings: %w", err)
			}

			slog.Info("⚙️  Reconciliation settings",
				"mode", settings.Mode,
				"enabled", settings.Enabled,
				"test_mode", settings.TestMode,
				"auto_confirm_threshold", settings.AutoConfirmThreshold,
				"audit_near_misses", settings.AuditNearMisses,
				"gate_open", settings.AllowsAutomation())
			return nil
		},
	}
}

func settingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update reconciliation settings",
		Long: `Update one or more settings fields. Unspecified fields keep their
current values. The engine only acts when mode is "full-auto" and
enabled is true; test mode keeps it to dry runs on top of that.`,
		RunE: runSettingsSet,
	}

	cmd.Flags().String("mode", "", `automation mode ("full-auto" for this engine to act)`)
	cmd.Flags().Bool("enabled", false, "master kill switch")
	cmd.Flags().Bool("test-mode", false, "dry-run mode, no financial side effects")
	cmd.Flags().Int("threshold", 0, "auto-confirm confidence threshold (0-100)")
	cmd.Flags().Bool("audit-near-misses", false, "record below-threshold matches in the audit log")

	return cmd
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	settings, err := store.GetSettings(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		defaults := model.DefaultSettings()
		settings = &defaults
	}

	if cmd.Flags().Changed("mode") {
		settings.Mode, _ = cmd.Flags().GetString("mode")
	}
	if cmd.Flags().Changed("enabled") {
		settings.Enabled, _ = cmd.Flags().GetBool("enabled")
	}
	if cmd.Flags().Changed("test-mode") {
		settings.TestMode, _ = cmd.Flags().GetBool("test-mode")
	}
	if cmd.Flags().Changed("threshold") {
		settings.AutoConfirmThreshold, _ = cmd.Flags().GetInt("threshold")
	}
	if cmd.Flags().Changed("audit-near-misses") {
		settings.AuditNearMisses, _ = cmd.Flags().GetBool("audit-near-misses")
	}

	if err := store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	slog.Info("✅ Settings updated",
		"mode", settings.Mode,
		"enabled", settings.Enabled,
		"test_mode", settings.TestMode,
		"auto_confirm_threshold", settings.AutoConfirmThreshold,
		"audit_near_misses", settings.AuditNearMisses,
		"gate_open", settings.AllowsAutomation())
	return nil
}
