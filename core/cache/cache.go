package cache

// Cache is the minimal read/write surface of a cache. *TTL implements it.
type Cache interface {
	Get(key any) (any, error)
	Set(key, val any, opts ...PutOption) error
	Del(keys ...any) (int, error)
}

// TypedCache is a Cache restricted to values of type T.
type TypedCache[T any] interface {
	Get(key any) (T, bool)
	Set(key any, val T, opts ...PutOption) error
	Delete(key any) error
}

type typedCache[T any] struct {
	c Cache
}

func NewTyped[T any](c Cache) TypedCache[T] { return &typedCache[T]{c: c} }

// Get reports false for missing keys, invalid keys and values that are
// not a T.
func (t *typedCache[T]) Get(key any) (out T, ok bool) {
	v, err := t.c.Get(key)
	if err != nil {
		return out, false
	}
	out, ok = v.(T)
	return out, ok
}

func (t *typedCache[T]) Set(key any, val T, opts ...PutOption) error {
	return t.c.Set(key, val, opts...)
}

func (t *typedCache[T]) Delete(key any) error {
	_, err := t.c.Del(key)
	return err
}

var _ TypedCache[any] = (*typedCache[any])(nil)
