// Package metrics provides Prometheus metrics for monitoring the resource manager.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions shows current live sessions in the pool.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawd_active_sessions",
			Help: "Number of live sessions in the pool",
		},
	)

	// SessionsRotated counts in-place session rotations.
	SessionsRotated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawd_sessions_rotated_total",
			Help: "Total in-place session rotations",
		},
	)

	// SessionsEvicted counts sessions evicted under the evict capacity policy.
	SessionsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawd_sessions_evicted_total",
			Help: "Total sessions evicted to make room for new keys",
		},
	)

	// FingerprintsGenerated counts fingerprint generations.
	FingerprintsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawd_fingerprints_generated_total",
			Help: "Total fingerprints generated",
		},
	)

	// ProxySelections counts proxy selections by strategy.
	ProxySelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawd_proxy_selections_total",
			Help: "Total proxy selections by strategy",
		},
		[]string{"strategy"},
	)

	// TabsCreated counts remote tabs created.
	TabsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawd_tabs_created_total",
			Help: "Total remote tabs created",
		},
	)

	// TabsClosed counts remote tab close attempts.
	TabsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawd_tabs_closed_total",
			Help: "Total remote tab close attempts",
		},
	)

	// RemoteRetries counts retried automation daemon calls.
	RemoteRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clawd_remote_retries_total",
			Help: "Total retried automation daemon calls",
		},
	)

	// RemoteErrors counts failed automation daemon calls by kind.
	RemoteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawd_remote_errors_total",
			Help: "Total failed automation daemon calls by kind",
		},
		[]string{"kind"},
	)

	// RemoteCallDuration tracks automation daemon call latency by endpoint.
	RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clawd_remote_call_duration_seconds",
			Help:    "Automation daemon call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"endpoint"},
	)

	// MemoryUsageBytes shows current memory usage.
	MemoryUsageBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawd_memory_usage_bytes",
			Help: "Current memory usage in bytes (alloc)",
		},
	)

	// GoroutineCount shows current goroutine count.
	GoroutineCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawd_goroutines",
			Help: "Current number of goroutines",
		},
	)

	// BuildInfo provides build information as labels.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clawd_build_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionsRotated,
		SessionsEvicted,
		FingerprintsGenerated,
		ProxySelections,
		TabsCreated,
		TabsClosed,
		RemoteRetries,
		RemoteErrors,
		RemoteCallDuration,
		MemoryUsageBytes,
		GoroutineCount,
		BuildInfo,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// StartMemoryCollector starts a loop that periodically updates runtime metrics.
// It blocks until stopCh is closed; run it in its own goroutine.
func StartMemoryCollector(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updateRuntimeMetrics()
		case <-stopCh:
			return
		}
	}
}

func updateRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsageBytes.Set(float64(m.Alloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}
