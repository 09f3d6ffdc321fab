package telemetry

import "github.com/prometheus/client_golang/prometheus"

var RateLimitSleepSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ghingest",
		Subsystem: "rate_limit",
		Name:      "sleep_seconds",
		Help:      "Duration of pre-call sleeps issued by the rate coordinator.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	},
	[]string{"resource"},
)

var RateLimitRemaining = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "ghingest",
		Subsystem: "rate_limit",
		Name:      "remaining",
		Help:      "Remaining calls in the current rate-limit window, per resource class.",
	},
	[]string{"resource"},
)

var EventsFetchedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "ghingest",
		Name:      "events_fetched_total",
		Help:      "Total number of events (of every type) fetched from the public event stream.",
	},
)

var JobsEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ghingest",
		Subsystem: "jobs",
		Name:      "enqueued_total",
		Help:      "Total number of jobs enqueued, by job class.",
	},
	[]string{"job"},
)

var JobAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ghingest",
		Subsystem: "jobs",
		Name:      "attempts_total",
		Help:      "Total number of job attempts, by job class and outcome.",
	},
	[]string{"job", "outcome"},
)

var FetchGuardSkipsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ghingest",
		Subsystem: "fetch_guard",
		Name:      "skips_total",
		Help:      "Total number of actor fetches the push-event handler skipped, by actor kind (bot, unknown, absent).",
	},
	[]string{"kind"},
)

var AvatarUploadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ghingest",
		Subsystem: "avatar",
		Name:      "uploads_total",
		Help:      "Total number of avatar pipeline runs, by outcome.",
	},
	[]string{"outcome"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ghingest",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of observability HTTP surface requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var CycleDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "ghingest",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one ingestion cycle (fetch-and-enqueue).",
		Buckets:   prometheus.DefBuckets,
	},
)

// All returns all ghingest-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		RateLimitSleepSeconds,
		RateLimitRemaining,
		EventsFetchedTotal,
		JobsEnqueuedTotal,
		JobAttemptsTotal,
		FetchGuardSkipsTotal,
		AvatarUploadsTotal,
		CycleDurationSeconds,
		HTTPRequestDuration,
	}
}

// NewRegistry builds a fresh Prometheus registry carrying the default Go
// runtime/process collectors plus every collector in All.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
