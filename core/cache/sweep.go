package cache

import (
	"log/slog"
	"maps"
	"slices"
)

// checkData runs the expiry check on every entry. Callers hold c.mu.
func (c *TTL) checkData(b *batch) int {
	defer c.metrics.SweepDuration(c.cfg.Name).ObserveDuration()

	expired := 0
	for _, k := range slices.Sorted(maps.Keys(c.data)) {
		e, ok := c.data[k]
		if !ok {
			continue
		}
		if !c.check(k, k, e, b) {
			expired++
		}
	}
	return expired
}

// schedule arms the next sweep. Callers hold c.mu.
func (c *TTL) schedule() {
	if c.cfg.CheckPeriod <= 0 {
		return
	}
	gen := c.gen
	c.timer = c.sched.AfterFunc(c.cfg.CheckPeriod, func() { c.sweep(gen) })
}

// stopSweep cancels the pending sweep. A callback that already fired and
// waits for c.mu sees the new generation and returns. Callers hold c.mu.
func (c *TTL) stopSweep() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *TTL) sweep(gen uint64) {
	var (
		b       batch
		expired int
		keys    int
	)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	expired = c.checkData(&b)
	keys = c.stats.Keys
	c.schedule()
	c.mu.Unlock()

	c.log.Debug("sweep", slog.Int("expired", expired), slog.Int("keys", keys))
	c.events.publishSafe(c.log, b.events)
}
