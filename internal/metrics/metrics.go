// Package metrics provides Prometheus metrics for the comment pipeline.
// Metrics are organized by domain: pipeline runs and stages, the upstream
// comment API, and HTTP requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "youtube_comments_etl"
)

var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of pipeline runs by trigger and final status",
		},
		[]string{"trigger", "status"},
	)

	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "in_progress",
			Help:      "Number of pipeline runs currently executing",
		},
	)

	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pipeline run",
		},
	)

	// Stage metrics
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "runs_total",
			Help:      "Total number of stage executions by stage and status",
		},
		[]string{"stage", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"stage"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "records_total",
			Help:      "Records read, written and dropped by stage",
		},
		[]string{"stage", "kind"},
	)

	// Upstream API metrics
	APIPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "pages_total",
			Help:      "Total number of comment pages fetched",
		},
	)

	APIItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "items_total",
			Help:      "Total number of comment threads received",
		},
	)

	APIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Comment API failures by reason",
		},
		[]string{"reason"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// ObserveStage records the outcome of one stage execution
func ObserveStage(stage, status string, seconds float64, in, out, dropped int) {
	StageRunsTotal.WithLabelValues(stage, status).Inc()
	StageDuration.WithLabelValues(stage).Observe(seconds)
	RecordsTotal.WithLabelValues(stage, "in").Add(float64(in))
	RecordsTotal.WithLabelValues(stage, "out").Add(float64(out))
	RecordsTotal.WithLabelValues(stage, "dropped").Add(float64(dropped))
}

// ObserveStageSkipped records a stage that did not run because an earlier one failed
func ObserveStageSkipped(stage string) {
	StageRunsTotal.WithLabelValues(stage, "skipped").Inc()
}

// StartRun marks a run as executing
func StartRun() {
	RunsInProgress.Inc()
}

// EndRun records a finished run
func EndRun(trigger, status string, succeeded bool) {
	RunsInProgress.Dec()
	RunsTotal.WithLabelValues(trigger, status).Inc()
	if succeeded {
		LastSuccessTimestamp.Set(float64(time.Now().Unix()))
	}
}

// ObserveAPIPage records one comment page received from the API
func ObserveAPIPage(items int) {
	APIPagesTotal.Inc()
	APIItemsTotal.Add(float64(items))
}

// ObserveAPIError records a failed API call
func ObserveAPIError(reason string) {
	APIErrorsTotal.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest records one served HTTP request
func ObserveHTTPRequest(method, path, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
