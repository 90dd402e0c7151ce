package cache

// Stats counts lookups and tracks the approximate footprint of the store.
// Every counter is zeroed by FlushStats and FlushAll. Keys, KSize and VSize
// follow each mutation, so after FlushStats they only count the changes
// made since.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int   `json:"keys"`
	KSize  int   `json:"ksize"`
	VSize  int   `json:"vsize"`
}

type entry struct {
	// expiresAt is a unix timestamp in milliseconds; 0 never expires.
	expiresAt int64
	value     any
	size      int
}

func (e *entry) expired(now int64) bool {
	return e.expiresAt != 0 && e.expiresAt < now
}
