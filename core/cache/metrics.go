package cache

import "github.com/stacksjs/ttlcache/core/metrics"

// Metrics receives cache instrumentation. Every method is labelled with
// the cache name and must be safe for concurrent use.
type Metrics interface {
	// Lookup is reported once per key read by Get, MGet, Take and Fetch.
	Lookup(cache string, hit bool)
	Expired(cache string, count int)
	// Rejected counts writes refused with ErrCacheFull.
	Rejected(cache string)
	Keys(cache string, count int)
	SweepDuration(cache string) metrics.Timer
	// Load is reported for every Fetch that ran (or joined) a loader.
	Load(cache string, shared bool, success bool)
}

type nopMetrics struct{}

func (nopMetrics) Lookup(string, bool)                {}
func (nopMetrics) Expired(string, int)                {}
func (nopMetrics) Rejected(string)                    {}
func (nopMetrics) Keys(string, int)                   {}
func (nopMetrics) SweepDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) Load(string, bool, bool)            {}

func NopMetrics() Metrics { return nopMetrics{} }
