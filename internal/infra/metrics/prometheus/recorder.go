// Package prometheus implements the engine metrics contract with
// client_golang collectors.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tracecore/internal/cache"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "tracecore"

// Config configures the recorder.
type Config struct {
	// Namespace prefixes metric names. Defaults to DefaultNamespace.
	Namespace string
	// Registry receives the collectors. Defaults to a fresh registry.
	Registry prometheus.Registerer
	// Buckets are the duration histogram bounds in seconds.
	Buckets []float64
}

// Recorder counts engine operations and tracks store-wide gauges.
type Recorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	records    prometheus.Gauge
	suspect    prometheus.Gauge

	cacheEvents  *prometheus.CounterVec
	cacheEntries prometheus.Gauge

	mu        sync.Mutex
	lastCache cache.Stats
}

// New registers the collectors described by cfg.
func New(cfg Config) (*Recorder, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
	}
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   cfg.Buckets,
		}, []string{"operation"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "store",
			Name:      "records",
			Help:      "Requirements held by the store at the last flush.",
		}),
		suspect: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "store",
			Name:      "suspect_links",
			Help:      "Suspect trace links at the last flush.",
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Record cache hits, misses and evictions.",
		}, []string{"event"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Records held by the cache at the last flush.",
		}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.durations, r.records, r.suspect, r.cacheEvents, r.cacheEntries} {
		if err := cfg.Registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				return nil, fmt.Errorf("register metrics: collector already registered in namespace %q", cfg.Namespace)
			}
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// Observe implements core.MetricsRecorder.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveState implements core.StateObserver.
func (r *Recorder) ObserveState(records, suspectLinks int) {
	r.records.Set(float64(records))
	r.suspect.Set(float64(suspectLinks))
}

// ObserveCache implements core.CacheObserver. Counters advance by the growth
// since the previous observation; a reset source starts a new baseline.
func (r *Recorder) ObserveCache(stats cache.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheEvents.WithLabelValues("hit").Add(counterDelta(stats.Hits, r.lastCache.Hits))
	r.cacheEvents.WithLabelValues("miss").Add(counterDelta(stats.Misses, r.lastCache.Misses))
	r.cacheEvents.WithLabelValues("eviction").Add(counterDelta(stats.Evictions, r.lastCache.Evictions))
	r.cacheEntries.Set(float64(stats.Len))
	r.lastCache = stats
}

func counterDelta(cur, last int64) float64 {
	if cur < last {
		return float64(cur)
	}
	return float64(cur - last)
}
