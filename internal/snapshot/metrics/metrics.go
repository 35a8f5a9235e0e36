package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	runtimemetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const subsystem = "podsnapshot"

const (
	OperationCheckpoint = "checkpoint"
	OperationRestore    = "restore"

	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"

	ResultDeleted  = "deleted"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration in seconds of checkpoint and restore operations including the wait for the controller.",
			Buckets:   []float64{1, 5, 10, 30, 60, 90, 120, 180, 300, 600},
		},
		[]string{"operation", "result"},
	)

	CleanupDeletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "cleanup_deletions_total",
			Help:      "Number of deletions attempted while closing sessions.",
		},
		[]string{"resource", "result"},
	)
)

func init() {
	runtimemetrics.Registry.MustRegister(OperationDuration, CleanupDeletions)
}
