package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	courseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_transitions_total",
			Help: "Course lifecycle transition attempts by outcome.",
		},
		[]string{"from", "to", "result"},
	)

	coursesByLifecycle = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "courses_by_lifecycle",
			Help: "Number of courses in each lifecycle state.",
		},
		[]string{"lifecycle"},
	)

	mailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Outbound notification emails by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

// Init registers the service collectors in the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
			courseTransitions, coursesByLifecycle, mailsSent)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTransition counts one lifecycle transition attempt. An empty to label
// is reported as "unknown" (the action did not map to a state).
func RecordTransition(from, to, result string) {
	if to == "" {
		to = "unknown"
	}
	if from == "" {
		from = "unknown"
	}
	courseTransitions.WithLabelValues(from, to, result).Inc()
}

// SetCourseCounts replaces the lifecycle gauge values. States missing from
// counts are reset to zero.
func SetCourseCounts(states []string, counts map[string]int) {
	for _, s := range states {
		coursesByLifecycle.WithLabelValues(s).Set(float64(counts[s]))
	}
}

// CourseGauge exposes the lifecycle gauge of one state.
func CourseGauge(state string) prometheus.Gauge {
	return coursesByLifecycle.WithLabelValues(state)
}

// RecordMail counts an outbound notification.
func RecordMail(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mailsSent.WithLabelValues(kind, result).Inc()
}

// Instrument records RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses numeric path segments into ":id" so label
// cardinality stays bounded. Query strings are dropped.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if strings.HasPrefix(p, "/swagger/") {
		return "/swagger/"
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events working through the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
