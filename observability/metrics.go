package observability

import (
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// EconomyMetrics tracks committed and rejected economy operations.
type EconomyMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	height     prometheus.Gauge
	taxed      prometheus.Counter
	balances   *prometheus.GaugeVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics

	economyMetricsOnce sync.Once
	economyRegistry    *EconomyMetrics
)

// RPC returns the lazily-initialised registry used to record JSON-RPC
// activity.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenflow",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenflow",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tokenflow",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenflow",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by the per-client rate limiter.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of a request. code is the JSON-RPC error code,
// zero on success.
func (m *rpcMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// Economy returns the singleton metrics registry for economy operations.
func Economy() *EconomyMetrics {
	economyMetricsOnce.Do(func() {
		economyRegistry = &EconomyMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokenflow",
				Subsystem: "economy",
				Name:      "operations_total",
				Help:      "Count of economy operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tokenflow",
				Subsystem: "economy",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for economy operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "tokenflow",
				Subsystem: "economy",
				Name:      "height",
				Help:      "Number of committed operations.",
			}),
			taxed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tokenflow",
				Subsystem: "economy",
				Name:      "tax_collected_total",
				Help:      "Cumulative tax routed to the reservoir.",
			}),
			balances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "tokenflow",
				Subsystem: "economy",
				Name:      "system_balance",
				Help:      "Balances of the protocol-owned accounts.",
			}, []string{"account"}),
		}
		prometheus.MustRegister(
			economyRegistry.operations,
			economyRegistry.latency,
			economyRegistry.height,
			economyRegistry.taxed,
			economyRegistry.balances,
		)
	})
	return economyRegistry
}

// Observe records a finished operation. outcome is "committed" or the error
// kind that rejected it.
func (m *EconomyMetrics) Observe(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *EconomyMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

func (m *EconomyMetrics) AddTax(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.taxed.Add(bigToFloat(amount))
}

func (m *EconomyMetrics) SetSystemBalance(account string, balance *big.Int) {
	if m == nil {
		return
	}
	m.balances.WithLabelValues(account).Set(bigToFloat(balance))
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
