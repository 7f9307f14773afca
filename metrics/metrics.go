package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "propsignal",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propsignal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	opinionSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "opinions",
			Name:      "saves_total",
			Help:      "Price opinion saves by outcome.",
		},
		[]string{"outcome"},
	)

	interestRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "interest",
			Name:      "registrations_total",
			Help:      "Interest registrations by outcome.",
		},
		[]string{"outcome"},
	)

	uploadFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "media",
			Name:      "files_total",
			Help:      "Listing media files processed by final status.",
		},
		[]string{"status"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "wizard",
			Name:      "submissions_total",
			Help:      "Listing submissions by outcome.",
		},
		[]string{"outcome"},
	)

	views = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "listings",
			Name:      "views_total",
			Help:      "Listing view increments by outcome.",
		},
		[]string{"outcome"},
	)

	reportRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propsignal",
			Subsystem: "reports",
			Name:      "runs_total",
			Help:      "Scheduled report refreshes by status.",
		},
		[]string{"status"},
	)

	reportListings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "propsignal",
			Subsystem: "reports",
			Name:      "listings",
			Help:      "Listings covered by the last report refresh.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		opinionSaves,
		interestRegistrations,
		uploadFiles,
		submissions,
		views,
		reportRuns,
		reportListings,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled with the chi route pattern, not the raw path.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordOpinionSave(outcome string) {
	opinionSaves.WithLabelValues(outcome).Inc()
}

func RecordInterest(outcome string) {
	interestRegistrations.WithLabelValues(outcome).Inc()
}

func RecordUpload(status string) {
	uploadFiles.WithLabelValues(status).Inc()
}

func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}

func RecordView(outcome string) {
	views.WithLabelValues(outcome).Inc()
}

// RecordReportRun records one scheduled refresh and the listings it covered.
func RecordReportRun(status string, listings int) {
	reportRuns.WithLabelValues(status).Inc()
	reportListings.Set(float64(listings))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
