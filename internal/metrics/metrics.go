// Package metrics exposes Prometheus collectors for the fetch gateway.
// All collectors are informational; nothing in the pipeline branches on
// them. Call Init before use; the helpers are no-ops until then.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchPagesTotal      *prometheus.CounterVec
	fetchRetriesTotal    *prometheus.CounterVec
	batchTasksTotal      *prometheus.CounterVec
	inFlightFetches      prometheus.Gauge
	throttleDelaySeconds *prometheus.HistogramVec
	batchDurationSeconds prometheus.Histogram
	policyDecisionsTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regfetch_pages_total",
				Help: "Pages fetched, labeled by resource and outcome.",
			},
			[]string{"resource", "outcome"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regfetch_fetch_retries_total",
				Help: "Retry attempts performed, labeled by resource.",
			},
			[]string{"resource"},
		)

		batchTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regfetch_batch_tasks_total",
				Help: "Batch tasks completed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		inFlightFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "regfetch_inflight_fetches",
				Help: "Fetch operations currently holding an admitted slot.",
			},
		)

		throttleDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regfetch_throttle_delay_seconds",
				Help:    "Histogram of enforced pacing waits per resource.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"resource"},
		)

		batchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "regfetch_batch_duration_seconds",
				Help:    "Histogram of whole-batch wall times.",
				Buckets: []float64{1, 5, 15, 60, 300, 900},
			},
		)

		policyDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regfetch_policy_decisions_total",
				Help: "Crawl-policy admission decisions, labeled by verdict.",
			},
			[]string{"verdict"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one completed fetch for a resource.
func ObservePage(resource, outcome string) {
	if fetchPagesTotal == nil {
		return
	}
	fetchPagesTotal.WithLabelValues(resource, outcome).Inc()
}

// ObserveRetry counts one retry attempt for a resource.
func ObserveRetry(resource string) {
	if fetchRetriesTotal == nil {
		return
	}
	fetchRetriesTotal.WithLabelValues(resource).Inc()
}

// ObserveTask counts one finished batch task.
func ObserveTask(outcome string) {
	if batchTasksTotal == nil {
		return
	}
	batchTasksTotal.WithLabelValues(outcome).Inc()
}

// ObserveBatchDuration records one whole-batch wall time.
func ObserveBatchDuration(d time.Duration) {
	if batchDurationSeconds == nil {
		return
	}
	batchDurationSeconds.Observe(d.Seconds())
}

// ObservePolicyDecision counts one admission verdict ("allowed"/"denied").
func ObservePolicyDecision(verdict string) {
	if policyDecisionsTotal == nil {
		return
	}
	policyDecisionsTotal.WithLabelValues(verdict).Inc()
}

// ObserveThrottleDelay records one enforced pacing wait.
func ObserveThrottleDelay(resource string, d time.Duration) {
	if throttleDelaySeconds == nil {
		return
	}
	throttleDelaySeconds.WithLabelValues(resource).Observe(d.Seconds())
}

// IncInFlight marks one more fetch holding an admitted slot.
func IncInFlight() {
	if inFlightFetches == nil {
		return
	}
	inFlightFetches.Inc()
}

// DecInFlight marks one fewer fetch holding an admitted slot.
func DecInFlight() {
	if inFlightFetches == nil {
		return
	}
	inFlightFetches.Dec()
}
