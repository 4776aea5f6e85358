// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_predictions_total",
			Help: "Total number of rent predictions by source and status",
		},
		[]string{"source", "status"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rent_prediction_duration_seconds",
			Help:    "Duration of build-then-predict calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"source"},
	)

	PredictedRent = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rent_predicted_value_usd",
			Help:    "Distribution of predicted monthly rents",
			Buckets: []float64{250, 500, 750, 1000, 1500, 2000, 3000, 5000},
		},
	)

	UnmatchedColumns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_unmatched_columns_total",
			Help: "Input-derived columns missing from the model feature schema",
		},
		[]string{"column"},
	)

	ArtifactFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_fetches_total",
			Help: "Artifact lookups by cache layer and result",
		},
		[]string{"layer", "result"},
	)

	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_sink_failures_total",
			Help: "Failures of post-prediction sinks (history, notifications)",
		},
		[]string{"sink"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
