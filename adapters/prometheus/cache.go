package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stacksjs/ttlcache/core/cache"
	"github.com/stacksjs/ttlcache/core/metrics"
)

type cacheMetrics struct {
	lookups       *prometheus.CounterVec
	expired       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	keys          *prometheus.GaugeVec
	sweepDuration *prometheus.HistogramVec
	loads         *prometheus.CounterVec
}

// NewCacheMetrics registers the cache collectors on reg. All series are
// labelled with the cache name, so one instance can serve many caches.
func NewCacheMetrics(reg prometheus.Registerer) cache.Metrics {
	m := &cacheMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttlcache_lookups_total",
			Help: "Total number of key lookups",
		}, []string{"cache", "result"}),

		expired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttlcache_expired_total",
			Help: "Total number of entries found expired",
		}, []string{"cache"}),

		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttlcache_rejected_writes_total",
			Help: "Total number of writes refused because the cache was full",
		}, []string{"cache"}),

		keys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ttlcache_keys",
			Help: "Number of keys stored",
		}, []string{"cache"}),

		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ttlcache_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps in seconds",
			Buckets: sweepBuckets,
		}, []string{"cache"}),

		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ttlcache_loads_total",
			Help: "Total number of loader calls made or joined by Fetch",
		}, []string{"cache", "shared", "success"}),
	}

	reg.MustRegister(
		m.lookups,
		m.expired,
		m.rejected,
		m.keys,
		m.sweepDuration,
		m.loads,
	)

	return m
}

func (m *cacheMetrics) Lookup(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(name, result).Inc()
}

func (m *cacheMetrics) Expired(name string, count int) {
	m.expired.WithLabelValues(name).Add(float64(count))
}

func (m *cacheMetrics) Rejected(name string) {
	m.rejected.WithLabelValues(name).Inc()
}

func (m *cacheMetrics) Keys(name string, count int) {
	m.keys.WithLabelValues(name).Set(float64(count))
}

func (m *cacheMetrics) SweepDuration(name string) metrics.Timer {
	return newTimer(m.sweepDuration.WithLabelValues(name))
}

func (m *cacheMetrics) Load(name string, shared bool, success bool) {
	m.loads.WithLabelValues(name, strconv.FormatBool(shared), strconv.FormatBool(success)).Inc()
}

var _ cache.Metrics = (*cacheMetrics)(nil)
