package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total HTTP requests across the MCP and monitor services.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestra_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestra_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ActiveSessions tracks currently running sessions, keyed by project path.
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestra_active_sessions",
			Help: "Number of active sessions",
		},
		[]string{"source_path"},
	)

	// ContainersRunning tracks running agent containers
	ContainersRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestra_containers_running",
			Help: "Number of running containers",
		},
	)

	// SessionDuration tracks how long sessions run
	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestra_session_duration_seconds",
			Help:    "Session duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"source_path", "status"},
	)

	// HookQueueDepth tracks the current depth of each session's monitor queue.
	HookQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestra_hook_queue_depth",
			Help: "Current depth of a session's hook event queue",
		},
		[]string{"session_id"},
	)

	// HookQueueDrops tracks hook events rejected because a session's queue was full.
	HookQueueDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestra_hook_queue_drops_total",
			Help: "Total number of hook events dropped due to a full queue",
		},
		[]string{"session_id"},
	)

	// MonitorBatchSize tracks how many hook events were coalesced into one
	// prompt sent to the monitor agent.
	MonitorBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestra_monitor_batch_size",
			Help:    "Number of hook events collected per monitor batch",
			Buckets: []float64{1, 2, 3, 5, 8, 10},
		},
	)

	// MonitorBatchLatency tracks the wall-clock age of a batch at flush time.
	MonitorBatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestra_monitor_batch_latency_seconds",
			Help:    "Age of a monitor batch when it was flushed to the agent",
			Buckets: []float64{0.1, 1, 5, 10, 15, 20, 25},
		},
	)

	// SessionsTotal tracks total number of projects with at least one session.
	SessionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestra_projects_total",
			Help: "Total number of projects with session state",
		},
	)

	// ToolCalls tracks MCP tool invocations
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestra_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath normalizes URL paths to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/health", "/ready", "/mcp", "/mcp/", "/metrics":
		return path
	default:
		if len(path) > 5 && path[:5] == "/mcp/" {
			return "/mcp"
		}
		if len(path) > 6 && path[:6] == "/hook/" {
			return "/hook"
		}
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSessionStart increments active session gauge
func RecordSessionStart(sourcePath string) {
	ActiveSessions.WithLabelValues(sourcePath).Inc()
}

// RecordSessionEnd decrements active session gauge and records duration
func RecordSessionEnd(sourcePath, status string, durationSeconds float64) {
	ActiveSessions.WithLabelValues(sourcePath).Dec()
	SessionDuration.WithLabelValues(sourcePath, status).Observe(durationSeconds)
}

// RecordToolCall records an MCP tool invocation
func RecordToolCall(tool, status string) {
	ToolCalls.WithLabelValues(tool, status).Inc()
}

// SetContainersRunning sets the running container count
func SetContainersRunning(count float64) {
	ContainersRunning.Set(count)
}

// SetProjectsTotal sets the total project count
func SetProjectsTotal(count float64) {
	SessionsTotal.Set(count)
}

// RecordHookQueueDrop records a hook event dropped due to a full queue
func RecordHookQueueDrop(sessionID string) {
	HookQueueDrops.WithLabelValues(sessionID).Inc()
}

// SetHookQueueDepth reports the current depth of a session's hook queue
func SetHookQueueDepth(sessionID string, depth int) {
	HookQueueDepth.WithLabelValues(sessionID).Set(float64(depth))
}

// RecordMonitorBatch records the size and age of a flushed monitor batch
func RecordMonitorBatch(size int, age time.Duration) {
	MonitorBatchSize.Observe(float64(size))
	MonitorBatchLatency.Observe(age.Seconds())
}
