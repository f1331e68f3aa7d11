package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vrf_oracle"

// OracleMetrics holds the daemon's collectors on a dedicated registry
type OracleMetrics struct {
	Registry *prometheus.Registry

	cycles             prometheus.Counter
	cycleErrors        prometheus.Counter
	cycleDuration      prometheus.Histogram
	fulfilled          prometheus.Counter
	failures           *prometheus.CounterVec
	decodeErrors       prometheus.Counter
	submissionAttempts prometheus.Counter
	processedRequests  prometheus.Gauge
}

func NewOracleMetrics() *OracleMetrics {
	m := &OracleMetrics{
		Registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycles_total",
			Help:      "Total number of scan cycles run.",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_errors_total",
			Help:      "Total number of scan cycles that could not fetch request accounts.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of scan cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		fulfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "fulfilled_total",
			Help:      "Total number of requests fulfilled with a confirmed transaction.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "failures_total",
			Help:      "Total number of failed fulfillment attempts by error kind.",
		}, []string{"kind"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "decode_errors_total",
			Help:      "Total number of request accounts that could not be decoded.",
		}),
		submissionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submitter",
			Name:      "attempts_total",
			Help:      "Total number of transaction submission attempts.",
		}),
		processedRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "processed",
			Help:      "Number of requests remembered as fulfilled by this process.",
		}),
	}

	m.Registry.MustRegister(
		m.cycles,
		m.cycleErrors,
		m.cycleDuration,
		m.fulfilled,
		m.failures,
		m.decodeErrors,
		m.submissionAttempts,
		m.processedRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *OracleMetrics) RecordCycle(start time.Time, err error) {
	m.cycles.Inc()
	m.cycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.cycleErrors.Inc()
	}
}

func (m *OracleMetrics) RecordFulfilled(processed int) {
	m.fulfilled.Inc()
	m.processedRequests.Set(float64(processed))
}

func (m *OracleMetrics) RecordFailure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *OracleMetrics) RecordDecodeError() {
	m.decodeErrors.Inc()
}

func (m *OracleMetrics) RecordSubmissionAttempt() {
	m.submissionAttempts.Inc()
}

// Handler returns an HTTP handler exposing the registered collectors
func (m *OracleMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
