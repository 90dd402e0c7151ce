// Package prometheus implements the cache metrics port with Prometheus
// collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stacksjs/ttlcache/core/metrics"
)

// timer observes the elapsed time into a histogram.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Sweeps walk the whole store under its lock; the buckets reach from
// microseconds for small caches to seconds for very large ones.
var sweepBuckets = []float64{
	.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5,
}
