package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/stacksjs/ttlcache/core/clone"
	"github.com/stacksjs/ttlcache/core/sf"
	"github.com/stacksjs/ttlcache/internal/codec"
)

// TTL is an in-memory key-value cache with per-entry expiry.
//
// Every operation runs under a single lock. Notifications are collected
// while the lock is held and delivered after it is released, before the
// operation returns, so listeners may call back into the cache.
type TTL struct {
	cfg     Config
	log     *slog.Logger
	metrics Metrics
	clock   Clock
	sched   Scheduler
	events  bus
	loads   *sf.Singleflight[any]

	mu    sync.Mutex
	data  map[string]*entry
	stats Stats
	timer Timer
	// gen invalidates sweep callbacks scheduled before the last
	// Close or FlushAll.
	gen uint64
}

// Item is one write of MSet. TTL is optional: nil uses StdTTL, otherwise
// it must be a time.Duration or a number of seconds.
type Item struct {
	Key   any
	Value any
	TTL   any
}

// NewTTL creates a cache and runs the first sweep. With a positive
// CheckPeriod the sweep is rescheduled until Close.
func NewTTL(opts ...Option) *TTL {
	o := buildOptions(opts)
	c := &TTL{
		cfg:     o.cfg,
		log:     o.log.With(slog.String("cache", o.cfg.Name)),
		metrics: o.metrics,
		clock:   o.clock,
		sched:   o.sched,
		loads:   sf.New[any](),
		data:    make(map[string]*entry),
	}

	var b batch
	c.mu.Lock()
	c.checkData(&b)
	c.schedule()
	c.mu.Unlock()
	c.events.publish(b.events)

	return c
}

func (c *TTL) Name() string   { return c.cfg.Name }
func (c *TTL) Config() Config { return c.cfg }

// On registers fn for the named notification and returns a function that
// removes it.
func (c *TTL) On(name EventName, fn Listener) (off func()) {
	return c.events.on(name, fn)
}

// do runs fn under the store lock and delivers what it emitted.
func (c *TTL) do(fn func(b *batch)) {
	var b batch
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		fn(&b)
	}()
	c.events.publish(b.events)
}

func (c *TTL) now() int64 { return c.clock.Now().UnixMilli() }

func (c *TTL) expiresAt(ttl time.Duration) int64 {
	if ttl == 0 {
		return 0
	}
	ms := ttl.Milliseconds()
	if ms == 0 && ttl < 0 {
		ms = -1
	}
	return c.now() + ms
}

// unwrap returns what a reader gets for a stored value.
func (c *TTL) unwrap(v any) any {
	if c.cfg.UseClones {
		return clone.Clone(v)
	}
	return v
}

// check runs the expiry check on e and reports whether it is still valid.
// An expired entry is removed when DeleteOnExpire is set and reported
// with an expired notification either way.
func (c *TTL) check(k string, key any, e *entry, b *batch) bool {
	if !e.expired(c.now()) {
		return true
	}
	if c.cfg.DeleteOnExpire {
		c.remove(k, key, b)
	}
	c.metrics.Expired(c.cfg.Name, 1)
	b.emit(EventExpired, key, c.unwrap(e.value))
	return false
}

func (c *TTL) remove(k string, key any, b *batch) bool {
	e, ok := c.data[k]
	if !ok {
		return false
	}
	delete(c.data, k)
	c.stats.VSize -= e.size
	c.stats.KSize -= keySize(k)
	c.stats.Keys--
	c.metrics.Keys(c.cfg.Name, len(c.data))
	b.emit(EventDel, key, e.value)
	return true
}

// lookup is the read path shared by Get, MGet and Take.
func (c *TTL) lookup(k string, key any, b *batch) (any, bool) {
	e, ok := c.data[k]
	if ok && c.check(k, key, e, b) {
		c.stats.Hits++
		c.metrics.Lookup(c.cfg.Name, true)
		return c.unwrap(e.value), true
	}
	c.stats.Misses++
	c.metrics.Lookup(c.cfg.Name, false)
	return nil, false
}

func (c *TTL) set(key, val any, po PutOptions, b *batch) error {
	// counted on the store, Stats.Keys restarts at zero after FlushStats
	if c.cfg.MaxKeys > -1 && len(c.data) >= c.cfg.MaxKeys {
		c.metrics.Rejected(c.cfg.Name)
		return errCacheFull(c.cfg.MaxKeys)
	}

	k, err := canonicalKey(key)
	if err != nil {
		return err
	}

	if _, isString := val.(string); c.cfg.ForceString && !isString {
		s, err := codec.String(codec.JSON, val)
		if err != nil {
			return fmt.Errorf("cache: encode value of key %q: %w", k, err)
		}
		val = s
	}

	ttl := c.cfg.StdTTL
	if po.hasTTL {
		ttl = po.TTL
	}

	stored := val
	if c.cfg.UseClones {
		stored = clone.Clone(val)
	}

	size := EstimateSize(val, c.cfg)
	if old, exists := c.data[k]; exists {
		c.stats.VSize -= old.size
	} else {
		c.stats.KSize += keySize(k)
		c.stats.Keys++
		c.metrics.Keys(c.cfg.Name, len(c.data))
	}
	c.data[k] = &entry{expiresAt: c.expiresAt(ttl), value: stored, size: size}
	c.stats.VSize += size

	b.emit(EventSet, key, val)
	return nil
}

// Set stores val under key. The capacity check comes first, so at MaxKeys
// even an update of an existing key fails with ErrCacheFull.
func (c *TTL) Set(key, val any, opts ...PutOption) (err error) {
	po := putOptions(opts)
	c.do(func(b *batch) {
		err = c.set(key, val, po, b)
	})
	return err
}

// Get returns the value stored under key or ErrNotFound.
func (c *TTL) Get(key any) (v any, err error) {
	k, err := canonicalKey(key)
	if err != nil {
		return nil, err
	}
	c.do(func(b *batch) {
		var ok bool
		if v, ok = c.lookup(k, key, b); !ok {
			err = errNotFound(k)
		}
	})
	return v, err
}

// MGet reads every key of the slice or array keys and returns the ones
// found, by canonical key.
func (c *TTL) MGet(keys any) (out map[string]any, err error) {
	rv := reflect.ValueOf(keys)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errKeysNotArray(keys)
	}
	list := keyList([]any{keys})

	out = make(map[string]any)
	c.do(func(b *batch) {
		for _, key := range list {
			k, kerr := canonicalKey(key)
			if kerr != nil {
				err = kerr
				return
			}
			if v, ok := c.lookup(k, key, b); ok {
				out[k] = v
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MSet validates every item before writing any. Writes are then applied
// in order and stop at the first failure.
func (c *TTL) MSet(items []Item) (err error) {
	puts := make([]PutOptions, len(items))
	for i, it := range items {
		if it.TTL != nil {
			ttl, ok := ttlOf(it.TTL)
			if !ok {
				return errInvalidTTL(it.TTL)
			}
			puts[i] = PutOptions{TTL: ttl, hasTTL: true}
		}
		if _, kerr := canonicalKey(it.Key); kerr != nil {
			return kerr
		}
	}

	c.do(func(b *batch) {
		for i, it := range items {
			if err = c.set(it.Key, it.Value, puts[i], b); err != nil {
				return
			}
		}
	})
	return err
}

// ttlOf accepts a time.Duration or a number of seconds.
func ttlOf(v any) (time.Duration, bool) {
	if d, ok := v.(time.Duration); ok {
		return d, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(rv.Int()) * time.Second, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(rv.Uint()) * time.Second, true
	case reflect.Float32, reflect.Float64:
		return time.Duration(rv.Float() * float64(time.Second)), true
	}
	return 0, false
}

// Del removes the given keys. Slice arguments are expanded. Missing keys
// are skipped; the number of removed keys is returned.
func (c *TTL) Del(keys ...any) (n int, err error) {
	list := keyList(keys)
	c.do(func(b *batch) {
		for _, key := range list {
			k, kerr := canonicalKey(key)
			if kerr != nil {
				err = kerr
				return
			}
			if c.remove(k, key, b) {
				n++
			}
		}
	})
	return n, err
}

// Take is Get followed by Del of the key when it was found.
func (c *TTL) Take(key any) (v any, err error) {
	k, err := canonicalKey(key)
	if err != nil {
		return nil, err
	}
	c.do(func(b *batch) {
		var ok bool
		if v, ok = c.lookup(k, key, b); !ok {
			err = errNotFound(k)
			return
		}
		c.remove(k, key, b)
	})
	return v, err
}

// TTL sets a new ttl on an existing key, StdTTL when ttl is omitted. A
// negative ttl deletes the key. It reports false for missing or expired
// keys and for the empty string and numeric zero.
func (c *TTL) TTL(key any, ttl ...time.Duration) (ok bool, err error) {
	d := c.cfg.StdTTL
	if len(ttl) > 0 {
		d = ttl[0]
	}
	if isFalsyKey(key) {
		return false, nil
	}
	k, err := canonicalKey(key)
	if err != nil {
		return false, err
	}

	c.do(func(b *batch) {
		e, exists := c.data[k]
		if !exists || !c.check(k, key, e, b) {
			return
		}
		ok = true
		if d < 0 {
			c.remove(k, key, b)
			return
		}
		c.data[k] = &entry{expiresAt: c.expiresAt(d), value: e.value, size: e.size}
	})
	return ok, nil
}

// GetTTL returns the expiry time of key, the zero time for entries that
// never expire, and ErrNotFound for missing or expired keys.
func (c *TTL) GetTTL(key any) (at time.Time, err error) {
	if isFalsyKey(key) {
		return time.Time{}, errNotFound(fmt.Sprint(key))
	}
	k, err := canonicalKey(key)
	if err != nil {
		return time.Time{}, err
	}

	err = errNotFound(k)
	c.do(func(b *batch) {
		e, exists := c.data[k]
		if !exists || !c.check(k, key, e, b) {
			return
		}
		err = nil
		if e.expiresAt != 0 {
			at = time.UnixMilli(e.expiresAt)
		}
	})
	return at, err
}

// Keys returns the keys physically present, in sorted order. With
// DeleteOnExpire disabled this includes expired entries.
func (c *TTL) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.data))
}

// Has reports whether key is present and not expired.
func (c *TTL) Has(key any) (ok bool) {
	k, err := canonicalKey(key)
	if err != nil {
		return false
	}
	c.do(func(b *batch) {
		e, exists := c.data[k]
		ok = exists && c.check(k, key, e, b)
	})
	return ok
}

func (c *TTL) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// FlushAll removes every entry, resets all statistics and restarts the
// sweep schedule.
func (c *TTL) FlushAll() {
	c.do(func(b *batch) {
		c.data = make(map[string]*entry)
		c.stats = Stats{}
		c.metrics.Keys(c.cfg.Name, 0)
		c.stopSweep()
		c.checkData(b)
		c.schedule()
		b.emit(EventFlush, nil, nil)
		c.log.Debug("flushed")
	})
}

// FlushStats zeroes every counter. The stored entries are untouched, so
// Keys, KSize and VSize only count mutations made after the flush.
func (c *TTL) FlushStats() {
	c.do(func(b *batch) {
		c.stats = Stats{}
		b.emit(EventFlushStats, nil, nil)
	})
}

// Close stops the background sweep. The cache stays usable.
func (c *TTL) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSweep()
}

// Fetch returns the value of key, loading and storing it on a miss.
// Concurrent misses on the same key share one call of load. A load error
// is returned as is and nothing is stored.
func (c *TTL) Fetch(key any, load func() (any, error), opts ...PutOption) (any, error) {
	v, err := c.Get(key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	k, _ := canonicalKey(key)
	v, shared, err := c.loads.Do(k, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if err := c.Set(key, v, opts...); err != nil {
			return nil, err
		}
		return v, nil
	})
	c.metrics.Load(c.cfg.Name, shared, err == nil)
	if err != nil {
		return nil, err
	}
	if shared {
		return c.unwrap(v), nil
	}
	return v, nil
}

var _ Cache = (*TTL)(nil)
