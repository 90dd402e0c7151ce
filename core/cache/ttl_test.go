package cache

import (
	"errors"
	"math/big"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, opts ...Option) (*TTL, *ManualClock) {
	t.Helper()
	clk := NewManualClock(epoch)
	opts = append([]Option{WithClock(clk), WithScheduler(clk), WithName("test")}, opts...)
	c := NewTTL(opts...)
	t.Cleanup(c.Close)
	return c, clk
}

// recorder collects notifications of the given names in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(c *TTL, names ...EventName) *recorder {
	r := &recorder{}
	for _, name := range names {
		c.On(name, func(ev Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		})
	}
	return r
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestTTL_Defaults(t *testing.T) {
	c := NewTTL()
	defer c.Close()

	cfg := c.Config()
	assert.Equal(t, 80, cfg.ObjectValueSize)
	assert.Equal(t, 80, cfg.PromiseValueSize)
	assert.Equal(t, 40, cfg.ArrayValueSize)
	assert.Equal(t, time.Duration(0), cfg.StdTTL)
	assert.Equal(t, 600*time.Second, cfg.CheckPeriod)
	assert.True(t, cfg.UseClones)
	assert.True(t, cfg.DeleteOnExpire)
	assert.Equal(t, -1, cfg.MaxKeys)
	assert.Regexp(t, `^cache-.{6}$`, c.Name())
}

func TestTTL_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	val := map[string]any{"list": []any{1, 2}}
	require.NoError(t, c.Set("k", val))

	got, err := c.Get("k")
	require.NoError(t, err)
	require.Equal(t, val, got)

	got.(map[string]any)["list"].([]any)[0] = 100
	val["list"].([]any)[1] = 200

	again, err := c.Get("k")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"list": []any{1, 2}}, again)
}

func TestTTL_WithoutClonesSharesReferences(t *testing.T) {
	c, _ := newTestCache(t, WithUseClones(false))

	val := &struct{ N int }{N: 1}
	require.NoError(t, c.Set("k", val))

	got, err := c.Get("k")
	require.NoError(t, err)
	require.Same(t, val, got)
}

type account struct {
	ID      string
	Tags    []string
	balance int
}

func TestTTL_RoundTripKeepsUnexportedState(t *testing.T) {
	c, _ := newTestCache(t)

	addr := netip.MustParseAddr("10.0.0.1")
	require.NoError(t, c.Set("addr", addr))
	got, err := c.Get("addr")
	require.NoError(t, err)
	require.Equal(t, addr, got)
	require.Equal(t, "10.0.0.1", got.(netip.Addr).String())

	n := big.NewInt(42)
	require.NoError(t, c.Set("n", n))
	got, err = c.Get("n")
	require.NoError(t, err)
	require.NotSame(t, n, got)
	require.Zero(t, n.Cmp(got.(*big.Int)))

	acc := account{ID: "a", Tags: []string{"x"}, balance: 100}
	require.NoError(t, c.Set("acc", acc))
	got, err = c.Get("acc")
	require.NoError(t, err)
	require.Equal(t, acc, got)

	// exported fields are still deep copies
	got.(account).Tags[0] = "y"
	again, err := c.Get("acc")
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, again.(account).Tags)
}

func TestTTL_ZeroTTLNeverExpires(t *testing.T) {
	c, clk := newTestCache(t, WithStdTTL(time.Second))

	require.NoError(t, c.Set("forever", "v", WithTTL(0)))
	require.NoError(t, c.Set("std", "v"))

	clk.Advance(48 * time.Hour)

	require.True(t, c.Has("forever"))
	require.False(t, c.Has("std"))
}

func TestTTL_ExpiresAfterTTL(t *testing.T) {
	c, clk := newTestCache(t)
	rec := record(c, EventExpired, EventDel)

	require.NoError(t, c.Set("k", "v", WithTTL(time.Second)))

	clk.Advance(time.Second)
	require.True(t, c.Has("k"))

	clk.Advance(100 * time.Millisecond)
	_, err := c.Get("k")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, c.Has("k"))

	require.Equal(t, []Event{
		{Name: EventDel, Key: "k", Value: "v"},
		{Name: EventExpired, Key: "k", Value: "v"},
	}, rec.all())
	require.Equal(t, Stats{Misses: 1}, c.Stats())
}

func TestTTL_NegativeTTLIsExpired(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set("k", "v", WithTTL(-time.Second)))
	require.False(t, c.Has("k"))
	require.Empty(t, c.Keys())
}

func TestTTL_DeleteOnExpireDisabled(t *testing.T) {
	c, clk := newTestCache(t, WithDeleteOnExpire(false), WithMaxKeys(1))
	rec := record(c, EventExpired, EventDel)

	require.NoError(t, c.Set("k", "v", WithTTL(time.Second)))
	clk.Advance(2 * time.Second)

	require.False(t, c.Has("k"))
	_, err := c.Get("k")
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, []string{"k"}, c.Keys())
	require.Equal(t, 1, c.Stats().Keys)
	require.ErrorIs(t, c.Set("other", 1), ErrCacheFull)

	// every check that finds the entry expired reports it
	require.Equal(t, []Event{
		{Name: EventExpired, Key: "k", Value: "v"},
		{Name: EventExpired, Key: "k", Value: "v"},
	}, rec.all())

	n, err := c.Del("k")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestTTL_MaxKeys(t *testing.T) {
	c, _ := newTestCache(t, WithMaxKeys(2))

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))

	err := c.Set("c", 3)
	require.ErrorIs(t, err, ErrCacheFull)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, CacheFull, cerr.Kind)
	require.Equal(t, "Cache max keys amount exceeded", cerr.Message)

	// the capacity check runs before the existing key is looked up
	require.ErrorIs(t, c.Set("a", 10), ErrCacheFull)

	_, err = c.Del("a")
	require.NoError(t, err)
	require.NoError(t, c.Set("c", 3))
}

func TestTTL_Stats(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Set("a", 1))
	_, err := c.Get("a")
	require.NoError(t, err)
	_, err = c.Get("a")
	require.NoError(t, err)
	_, err = c.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, Stats{Hits: 2, Misses: 1, Keys: 1, KSize: 1, VSize: 8}, c.Stats())

	require.NoError(t, c.Set("a", "four"))
	require.Equal(t, 4, c.Stats().VSize)
	require.Equal(t, 1, c.Stats().Keys)

	_, err = c.Del("a")
	require.NoError(t, err)
	st := c.Stats()
	require.Zero(t, st.Keys)
	require.Zero(t, st.KSize)
	require.Zero(t, st.VSize)
}

func TestTTL_DelMany(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set("a", 1))

	n, err := c.Del([]string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.False(t, c.Has("a"))
	require.False(t, c.Has("b"))

	require.NoError(t, c.Set("x", 1))
	require.NoError(t, c.Set(2, 1))
	n, err = c.Del("x", []any{2, "y"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = c.Del(1.5)
	require.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestTTL_FlushStats(t *testing.T) {
	c, _ := newTestCache(t)
	rec := record(c, EventFlushStats)

	require.NoError(t, c.Set("a", 1))
	_, _ = c.Get("a")
	_, _ = c.Get("b")

	c.FlushStats()

	require.Equal(t, Stats{}, c.Stats())
	require.Equal(t, []string{"a"}, c.Keys())
	require.True(t, c.Has("a"))
	require.Equal(t, []Event{{Name: EventFlushStats}}, rec.all())

	require.NoError(t, c.Set("b", 2))
	require.Equal(t, Stats{Keys: 1, KSize: 1, VSize: 8}, c.Stats())
}

func TestTTL_FlushStatsKeepsCapacity(t *testing.T) {
	c, _ := newTestCache(t, WithMaxKeys(1))

	require.NoError(t, c.Set("a", 1))
	c.FlushStats()
	require.Zero(t, c.Stats().Keys)

	require.ErrorIs(t, c.Set("b", 2), ErrCacheFull)
	require.Equal(t, []string{"a"}, c.Keys())
}

func TestTTL_FlushAll(t *testing.T) {
	c, clk := newTestCache(t)
	rec := record(c, EventFlush)

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))
	_, _ = c.Get("a")

	c.FlushAll()

	require.Empty(t, c.Keys())
	require.Equal(t, Stats{}, c.Stats())
	require.Equal(t, []Event{{Name: EventFlush}}, rec.all())
	require.Equal(t, 1, clk.Pending())
}

func TestTTL_Close(t *testing.T) {
	c, clk := newTestCache(t)
	require.Equal(t, 1, clk.Pending())

	c.Close()
	require.Zero(t, clk.Pending())

	require.NoError(t, c.Set("a", 1))
	v, err := c.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestTTL_InvalidKey(t *testing.T) {
	c, _ := newTestCache(t)

	err := c.Set(1.5, "v")
	require.ErrorIs(t, err, ErrInvalidKeyType)
	require.EqualError(t, err, "The key argument has to be of type `string` or `number`. Found: `float64`")

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, map[string]any{"type": "float64"}, cerr.Data)

	_, err = c.Get(struct{}{})
	require.ErrorIs(t, err, ErrInvalidKeyType)
	require.ErrorIs(t, c.Set(nil, 1), ErrInvalidKeyType)
	require.False(t, c.Has([]int{1}))
}

func TestTTL_NumericKeys(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set(7, "x"))

	for _, key := range []any{"7", int64(7), uint8(7), 7.0} {
		v, err := c.Get(key)
		require.NoError(t, err, "%T", key)
		require.Equal(t, "x", v)
	}
	require.Equal(t, []string{"7"}, c.Keys())
}

func TestTTL_MGet(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))

	out, err := c.MGet([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, out)
	require.Equal(t, int64(2), c.Stats().Hits)
	require.Equal(t, int64(1), c.Stats().Misses)

	_, err = c.MGet("a")
	require.ErrorIs(t, err, ErrKeysNotArray)
	require.EqualError(t, err, "The keys argument has to be an array.")

	_, err = c.MGet([]any{"a", true})
	require.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestTTL_MSet(t *testing.T) {
	c, _ := newTestCache(t)

	err := c.MSet([]Item{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2, TTL: "soon"},
	})
	require.ErrorIs(t, err, ErrInvalidTTLType)
	require.EqualError(t, err, "The ttl argument has to be a number.")
	require.Empty(t, c.Keys())

	err = c.MSet([]Item{
		{Key: "a", Value: 1},
		{Key: map[string]int{}, Value: 2},
	})
	require.ErrorIs(t, err, ErrInvalidKeyType)
	require.Empty(t, c.Keys())

	require.NoError(t, c.MSet([]Item{
		{Key: "a", Value: 1, TTL: 10},
		{Key: "b", Value: 2, TTL: 2 * time.Second},
		{Key: "c", Value: 3},
	}))
	require.Equal(t, []string{"a", "b", "c"}, c.Keys())

	at, err := c.GetTTL("a")
	require.NoError(t, err)
	require.Equal(t, epoch.Add(10*time.Second).UnixMilli(), at.UnixMilli())

	at, err = c.GetTTL("b")
	require.NoError(t, err)
	require.Equal(t, epoch.Add(2*time.Second).UnixMilli(), at.UnixMilli())
}

func TestTTL_MSetStopsAtCapacity(t *testing.T) {
	c, _ := newTestCache(t, WithMaxKeys(1))

	err := c.MSet([]Item{{Key: "a", Value: 1}, {Key: "b", Value: 2}})
	require.ErrorIs(t, err, ErrCacheFull)
	require.Equal(t, []string{"a"}, c.Keys())
}

func TestTTL_Take(t *testing.T) {
	c, _ := newTestCache(t)
	rec := record(c, EventDel)

	require.NoError(t, c.Set("a", "v"))

	v, err := c.Take("a")
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.False(t, c.Has("a"))

	_, err = c.Take("a")
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "Key `a` not found")

	require.Equal(t, []Event{{Name: EventDel, Key: "a", Value: "v"}}, rec.all())
}

func TestTTL_TTL(t *testing.T) {
	c, clk := newTestCache(t, WithStdTTL(time.Minute))

	require.NoError(t, c.Set("a", 1, WithTTL(0)))

	at, err := c.GetTTL("a")
	require.NoError(t, err)
	require.True(t, at.IsZero())

	ok, err := c.TTL("a", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	at, err = c.GetTTL("a")
	require.NoError(t, err)
	require.Equal(t, epoch.Add(10*time.Second).UnixMilli(), at.UnixMilli())

	ok, err = c.TTL("a")
	require.NoError(t, err)
	require.True(t, ok)
	at, _ = c.GetTTL("a")
	require.Equal(t, epoch.Add(time.Minute).UnixMilli(), at.UnixMilli())

	clk.Advance(2 * time.Minute)
	ok, err = c.TTL("a", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = c.GetTTL("a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTTL_TTLNegativeDeletes(t *testing.T) {
	c, _ := newTestCache(t)
	rec := record(c, EventDel)
	require.NoError(t, c.Set("a", 1))

	ok, err := c.TTL("a", -time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, c.Has("a"))
	require.Len(t, rec.all(), 1)
}

func TestTTL_TTLFalsyKeys(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Set("", 1))
	require.NoError(t, c.Set(0, 1))

	for _, key := range []any{"", 0, 0.0} {
		ok, err := c.TTL(key, time.Second)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = c.GetTTL(key)
		require.ErrorIs(t, err, ErrNotFound)
	}
	require.True(t, c.Has(""))

	ok, err := c.TTL("missing")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = c.TTL(true)
	require.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestTTL_TTLKeepsStoredValue(t *testing.T) {
	c, _ := newTestCache(t)
	type user struct{ Name string }

	require.NoError(t, c.Set("u", &user{Name: "a"}))
	ok, err := c.TTL("u", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	v, err := c.Get("u")
	require.NoError(t, err)
	require.Equal(t, &user{Name: "a"}, v)
	require.Equal(t, 80, c.Stats().VSize)
}

func TestTTL_ForceString(t *testing.T) {
	c, _ := newTestCache(t, WithForceString(true))
	rec := record(c, EventSet)

	require.NoError(t, c.Set("a", map[string]any{"a": 1}))
	v, err := c.Get("a")
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, v)
	require.Equal(t, 7, c.Stats().VSize)
	require.Equal(t, []Event{{Name: EventSet, Key: "a", Value: `{"a":1}`}}, rec.all())

	err = c.Set("b", make(chan int))
	require.Error(t, err)
	require.False(t, c.Has("b"))
}

func TestTTL_ListenersInRegistrationOrder(t *testing.T) {
	c, _ := newTestCache(t)

	var order []string
	c.On(EventSet, func(Event) { order = append(order, "first") })
	off := c.On(EventSet, func(Event) { order = append(order, "second") })
	c.On(EventSet, func(Event) { order = append(order, "third") })

	require.NoError(t, c.Set("a", 1))
	require.Equal(t, []string{"first", "second", "third"}, order)

	off()
	order = nil
	require.NoError(t, c.Set("a", 2))
	require.Equal(t, []string{"first", "third"}, order)
}

func TestTTL_ListenerPanicReachesCaller(t *testing.T) {
	c, _ := newTestCache(t)
	c.On(EventSet, func(Event) { panic("listener failed") })

	require.PanicsWithValue(t, "listener failed", func() {
		_ = c.Set("a", 1)
	})

	// the write happened and the lock was released
	v, err := c.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestTTL_ListenerMayCallBack(t *testing.T) {
	c, _ := newTestCache(t)

	var seen any
	c.On(EventSet, func(ev Event) {
		seen, _ = c.Get(ev.Key)
	})

	require.NoError(t, c.Set("a", "v"))
	require.Equal(t, "v", seen)
}

func TestTTL_Sweep(t *testing.T) {
	c, clk := newTestCache(t, WithCheckPeriod(time.Second))
	rec := record(c, EventExpired)

	require.NoError(t, c.Set("short", "s", WithTTL(500*time.Millisecond)))
	require.NoError(t, c.Set("long", "l", WithTTL(time.Hour)))

	clk.Advance(time.Second)

	require.Equal(t, []string{"long"}, c.Keys())
	require.Equal(t, []Event{{Name: EventExpired, Key: "short", Value: "s"}}, rec.all())
	require.Equal(t, 1, clk.Pending())

	// the sweep keeps rescheduling itself
	require.NoError(t, c.Set("next", "n", WithTTL(500*time.Millisecond)))
	clk.Advance(time.Second)
	require.Equal(t, []string{"long"}, c.Keys())
}

func TestTTL_SweepDisabled(t *testing.T) {
	c, clk := newTestCache(t, WithCheckPeriod(0))
	require.Zero(t, clk.Pending())

	require.NoError(t, c.Set("a", 1, WithTTL(time.Second)))
	clk.Advance(time.Hour)
	require.Equal(t, []string{"a"}, c.Keys())
	require.False(t, c.Has("a"))
	require.Empty(t, c.Keys())
}

func TestTTL_SweepRecoversListenerPanic(t *testing.T) {
	c, clk := newTestCache(t, WithCheckPeriod(time.Second))
	c.On(EventExpired, func(Event) { panic("boom") })

	require.NoError(t, c.Set("a", 1, WithTTL(time.Millisecond)))
	require.NotPanics(t, func() { clk.Advance(time.Second) })

	require.Empty(t, c.Keys())
	require.Equal(t, 1, clk.Pending())
}

type captureScheduler struct {
	mu  sync.Mutex
	fns []func()
}

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

func (s *captureScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, f)
	return stubTimer{}
}

func (s *captureScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func TestTTL_LateSweepAfterClose(t *testing.T) {
	clk := NewManualClock(epoch)
	sched := &captureScheduler{}
	c := NewTTL(WithClock(clk), WithScheduler(sched), WithCheckPeriod(time.Second))
	rec := record(c, EventExpired)

	require.NoError(t, c.Set("a", 1, WithTTL(time.Millisecond)))
	clk.Advance(time.Second)
	require.Equal(t, 1, sched.count())

	c.Close()
	sched.fns[0]()

	require.Empty(t, rec.all())
	require.Equal(t, []string{"a"}, c.Keys())
	require.Equal(t, 1, sched.count())
}

func TestTTL_SweepCallback(t *testing.T) {
	clk := NewManualClock(epoch)
	sched := &captureScheduler{}
	c := NewTTL(WithClock(clk), WithScheduler(sched), WithCheckPeriod(time.Second))
	defer c.Close()

	require.NoError(t, c.Set("a", 1, WithTTL(time.Millisecond)))
	clk.Advance(time.Second)

	sched.fns[0]()
	require.Empty(t, c.Keys())
	require.Equal(t, 2, sched.count())
}

func TestTTL_LegacyCallbacksIsNoop(t *testing.T) {
	c, _ := newTestCache(t, WithLegacyCallbacks(true))
	require.True(t, c.Config().LegacyCallbacks)
	require.NoError(t, c.Set("a", 1))
	v, err := c.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
}
