// Package sf deduplicates concurrent calls that share a key.
//
// While a call for a key is in flight, further callers with the same key
// wait for it and receive its result instead of running their own. The
// cache uses it so that concurrent misses on one key run the loader once.
//
//	loads := sf.New[*User]()
//	user, err := loads.Do("user:123", func() (*User, error) {
//	    return db.GetUser(ctx, "123")
//	})
package sf
