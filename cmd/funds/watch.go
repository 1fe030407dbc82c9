package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/engine"
	"github.com/Veraticus/the-funds-must-clear/internal/watcher"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for new detections and reconcile them automatically",
		Long: `Poll the pending-detection set and run one reconciliation attempt per
newly observed detection. Whether a match is committed or only logged as a
dry run is governed by the stored reconciliation settings, not by flags;
use 'funds settings' to control the automation gate.`,
		RunE: runWatch,
	}

	cmd.Flags().Duration("interval", watcher.DefaultInterval, "poll interval")
	cmd.Flags().String("metrics-addr", "", "address to expose Prometheus metrics on (e.g. :9090, empty to disable)")
	_ = viper.BindPFlag("watcher.interval", cmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("watcher.metrics_addr", cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if addr := viper.GetString("watcher.metrics_addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("metrics endpoint listening", "addr", addr)
			if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", serveErr)
			}
		}()
		defer func() { _ = server.Close() }()
	}

	w := watcher.New(store, engine.New(store), viper.GetDuration("watcher.interval"))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
