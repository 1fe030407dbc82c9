package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Insert a pending bank-transfer detection",
		Long: `Create a pending detection record by hand, as the external notification
ingester would. Useful for demos and for backfilling a transfer the
ingester missed.`,
		RunE: runIngest,
	}

	cmd.Flags().String("id", "", "detection id (default: a generated UUID)")
	cmd.Flags().Int64("amount", 0, "transfer amount in the smallest currency unit (required)")
	cmd.Flags().String("sender", "", "sender name as reported by the bank")
	cmd.Flags().String("bank", "", "bank or service provider")
	cmd.Flags().String("text", "", "raw notification text")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	id, _ := cmd.Flags().GetString("id")
	amount, _ := cmd.Flags().GetInt64("amount")
	sender, _ := cmd.Flags().GetString("sender")
	bank, _ := cmd.Flags().GetString("bank")
	text, _ := cmd.Flags().GetString("text")

	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if id == "" {
		id = uuid.NewString()
	}

	detection := model.PaymentDetection{
		ID:         id,
		Amount:     amount,
		SenderName: sender,
		Bank:       bank,
		RawText:    text,
		CreatedAt:  time.Now().UTC(),
	}

	if err := store.SavePendingDetection(ctx, &detection); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			return common.NewUserError("a detection with this id already exists", err)
		}
		return fmt.Errorf("failed to ingest detection: %w", err)
	}

	slog.Info("✅ Detection ingested",
		"detection_id", detection.ID,
		"amount", detection.Amount,
		"sender", detection.SenderName)
	return nil
}
