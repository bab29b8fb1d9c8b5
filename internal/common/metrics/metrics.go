// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeStale   = "stale"
)

var (
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

	AutosaveAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_autosave_attempts_total",
			Help: "Debounced draft autosaves by outcome",
		},
		[]string{"level", "outcome"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_submissions_total",
			Help: "Application submissions to the backend by mode and outcome",
		},
		[]string{"level", "mode", "outcome"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admissions_submission_duration_seconds",
			Help:    "Latency of backend submissions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_validation_failures_total",
			Help: "Blocked submissions by first failing field",
		},
		[]string{"level", "field"},
	)

	SnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_snapshot_writes_total",
			Help: "Snapshot writes by backend and outcome",
		},
		[]string{"outcome"},
	)

	UniversityLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_university_lookups_total",
			Help: "University lookups by result source",
		},
		[]string{"source"},
	)

	PaymentsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_payments_opened_total",
			Help: "Payment checkouts opened by currency",
		},
		[]string{"currency"},
	)
)
