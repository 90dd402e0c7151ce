// Package cache provides an in-memory key-value cache with per-entry TTL,
// statistics and change notifications.
//
// # Usage
//
//	c := cache.NewTTL(
//	    cache.WithStdTTL(time.Minute),
//	    cache.WithCheckPeriod(30*time.Second),
//	)
//	defer c.Close()
//
//	_ = c.Set("user:1", user)
//	_ = c.Set("session", token, cache.WithTTL(10*time.Second))
//
//	v, err := c.Get("user:1")
//	if errors.Is(err, cache.ErrNotFound) {
//	    // miss
//	}
//
// Keys are strings or integers; 7 and "7" address the same entry.
//
// # Expiry
//
// An entry expires once its ttl has elapsed. Expired entries are never
// returned. They are removed when they are read, when their ttl is
// queried, and by a background sweep that runs every CheckPeriod. With
// WithDeleteOnExpire(false) they are hidden but stay in the store until
// deleted or flushed.
//
// # Copies
//
// By default values are deep-copied on write and on read (see package
// clone), so callers cannot change stored values through references they
// hold. WithUseClones(false) stores and returns the references instead.
//
// # Notifications
//
// [TTL.On] subscribes to set, del, expired, flush and flush_stats.
// Listeners run synchronously in registration order after the store lock
// is released. A panic in a listener reaches the caller of the operation
// that triggered it, except during background sweeps where it is logged.
//
// # Type-Safe Usage
//
//	users := cache.NewTyped[*User](c)
//	_ = users.Set("user:123", user)
//	if u, ok := users.Get("user:123"); ok {
//	    // u is *User
//	}
package cache
