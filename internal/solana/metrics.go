package solana

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the RPC layer. A nil *Metrics
// is valid and records nothing, which keeps tests quiet.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FailoversTotal  *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

// NewMetrics creates and registers all RPC-layer metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_requests_total",
				Help: "Total JSON-RPC requests by endpoint, method and outcome",
			},
			[]string{"endpoint", "method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_request_duration_seconds",
				Help:    "JSON-RPC request latency per endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		FailoversTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_failovers_total",
				Help: "Endpoint failures that moved a call to the next endpoint",
			},
			[]string{"endpoint"},
		),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solana_signature_cache_hits_total",
			Help: "Signature cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solana_signature_cache_misses_total",
			Help: "Signature cache misses (including TTL evictions)",
		}),
	}
}

// RecordRequest records one JSON-RPC attempt.
func (m *Metrics) RecordRequest(endpoint, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordFailover records a call moving past a failed endpoint.
func (m *Metrics) RecordFailover(endpoint string) {
	if m == nil {
		return
	}
	m.FailoversTotal.WithLabelValues(endpoint).Inc()
}

// RecordCacheHit records a signature cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss records a signature cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}
