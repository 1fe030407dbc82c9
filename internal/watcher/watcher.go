// Package watcher polls the pending-detection set and fires the reconciler
// once per newly observed detection. It is the in-process stand-in for the
// external event source that triggers reconciliation on detection creation.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-funds-must-clear/internal/common"
	"github.com/Veraticus/the-funds-must-clear/internal/engine"
	"github.com/Veraticus/the-funds-must-clear/internal/model"
	"github.com/Veraticus/the-funds-must-clear/internal/service"
)

// DefaultInterval is the default poll interval.
const DefaultInterval = 2 * time.Second

// Watcher observes the pending set and triggers reconciliation attempts.
// Each new detection is attempted exactly once per process lifetime:
// detections that find no match stay pending and are deliberately not
// re-fired, matching trigger-on-creation semantics.
type Watcher struct {
	storage    service.Storage
	reconciler *engine.Reconciler
	seen       map[string]struct{}
	interval   time.Duration
}

// New creates a watcher. A non-positive interval falls back to DefaultInterval.
func New(storage service.Storage, reconciler *engine.Reconciler, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		storage:    storage,
		reconciler: reconciler,
		seen:       make(map[string]struct{}),
		interval:   interval,
	}
}

// Run polls until the context is canceled. Reconciliation attempts for
// different detections run concurrently, mirroring however many triggers
// would fire simultaneously; the watcher itself imposes no ordering.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher started", "interval", w.interval)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopping")
			return ctx.Err()
		default:
		}

		w.pollOnce(ctx, &wg)

		select {
		case <-ctx.Done():
			slog.Info("watcher stopping")
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// pollOnce reads the pending set and dispatches any detection not seen
// before. The seen map is only touched here, on the poll goroutine.
func (w *Watcher) pollOnce(ctx context.Context, wg *sync.WaitGroup) {
	var pending []model.PaymentDetection
	err := common.WithRetry(ctx, func() error {
		var listErr error
		pending, listErr = w.storage.ListPendingDetections(ctx)
		if listErr != nil {
			return &common.RetryableError{Err: listErr, Retryable: true}
		}
		return nil
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
	if err != nil {
		pollFailures.Inc()
		slog.Error("failed to poll pending detections", "error", err)
		return
	}

	for _, detection := range pending {
		if _, ok := w.seen[detection.ID]; ok {
			continue
		}
		w.seen[detection.ID] = struct{}{}
		detectionsObserved.Inc()

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcome := w.reconciler.Reconcile(ctx, id)
			reconcileOutcomes.WithLabelValues(string(outcome)).Inc()
			slog.Info("reconciliation attempt finished",
				"detection_id", id,
				"outcome", outcome)
		}(detection.ID)
	}
}
