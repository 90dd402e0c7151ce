package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stacksjs/ttlcache/core/metrics"
)

type countingMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	expired  int
	rejected int
	keys     int
	sweeps   int
	loads    int
}

func (m *countingMetrics) Lookup(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *countingMetrics) Expired(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired += n
}

func (m *countingMetrics) Rejected(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *countingMetrics) Keys(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = n
}

func (m *countingMetrics) SweepDuration(string) metrics.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	return metrics.NopTimer()
}

func (m *countingMetrics) Load(string, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
}

func TestTTL_ReportsMetrics(t *testing.T) {
	m := &countingMetrics{}
	c, clk := newTestCache(t, WithMetrics(m), WithMaxKeys(2), WithCheckPeriod(time.Second))

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2, WithTTL(time.Millisecond)))
	require.ErrorIs(t, c.Set("c", 3), ErrCacheFull)

	_, _ = c.Get("a")
	_, _ = c.MGet([]string{"a", "x"})
	_, _ = c.Fetch("a", func() (any, error) { return 1, nil })

	clk.Advance(time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Equal(t, 3, m.hits)
	require.Equal(t, 1, m.misses)
	require.Equal(t, 1, m.rejected)
	require.Equal(t, 1, m.expired)
	require.Equal(t, 1, m.keys)
	require.Equal(t, 2, m.sweeps)
	require.Zero(t, m.loads)
}
