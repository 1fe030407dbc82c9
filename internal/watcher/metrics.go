package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectionsObserved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funds_detections_observed_total",
		Help: "Number of new pending detections picked up by the watcher.",
	})

	reconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funds_reconcile_outcomes_total",
		Help: "Reconciliation attempts by terminal outcome.",
	}, []string{"outcome"})

	pollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funds_watcher_poll_failures_total",
		Help: "Pending-set polls that failed after retries.",
	})
)
