package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job metrics

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scrapegen",
		Name:      "job_duration_seconds",
		Help:      "End-to-end job duration, by outcome.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"outcome"})

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scrapegen",
		Name:      "jobs_in_flight",
		Help:      "Number of jobs currently running.",
	})

	JobsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrapegen",
		Name:      "jobs_completed_total",
		Help:      "Total jobs finished, by outcome.",
	}, []string{"outcome"})

	AttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrapegen",
		Name:      "attempts_total",
		Help:      "Total generation attempts, by result.",
	}, []string{"result"})

	// Oracle metrics

	OracleRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scrapegen",
		Name:      "oracle_request_duration_seconds",
		Help:      "Latency of code-generation API calls.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"status"})

	// Sandbox metrics

	SandboxPhaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scrapegen",
		Name:      "sandbox_phase_duration_seconds",
		Help:      "Duration of sandbox phases (install, run).",
		Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"phase"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scrapegen",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scrapegen",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		JobDuration,
		JobsInFlight,
		JobsCompletedTotal,
		AttemptsTotal,
		OracleRequestDuration,
		SandboxPhaseDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
