package cache

import (
	"fmt"

	"github.com/stacksjs/ttlcache/core/reflector"
)

type ErrorKind string

const (
	InvalidKeyType ErrorKind = "EKEYTYPE"
	KeysNotArray   ErrorKind = "EKEYSTYPE"
	InvalidTTLType ErrorKind = "ETTLTYPE"
	CacheFull      ErrorKind = "ECACHEFULL"
	NotFound       ErrorKind = "ENOTFOUND"
)

// Error is returned by every failing cache operation. Data holds the
// offending input, e.g. {"type": "float64"} for a bad key or {"key": "k"}
// for a missing one.
type Error struct {
	Kind    ErrorKind
	Message string
	Data    map[string]any
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message and data.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidKeyType = &Error{Kind: InvalidKeyType, Message: "invalid key type"}
	ErrKeysNotArray   = &Error{Kind: KeysNotArray, Message: "keys not an array"}
	ErrInvalidTTLType = &Error{Kind: InvalidTTLType, Message: "invalid ttl type"}
	ErrCacheFull      = &Error{Kind: CacheFull, Message: "cache full"}
	ErrNotFound       = &Error{Kind: NotFound, Message: "not found"}
)

func errInvalidKey(key any) error {
	name := reflector.NameOf(key)
	return &Error{
		Kind:    InvalidKeyType,
		Message: fmt.Sprintf("The key argument has to be of type `string` or `number`. Found: `%s`", name),
		Data:    map[string]any{"type": name},
	}
}

func errKeysNotArray(keys any) error {
	return &Error{
		Kind:    KeysNotArray,
		Message: "The keys argument has to be an array.",
		Data:    map[string]any{"type": reflector.NameOf(keys)},
	}
}

func errInvalidTTL(ttl any) error {
	return &Error{
		Kind:    InvalidTTLType,
		Message: "The ttl argument has to be a number.",
		Data:    map[string]any{"type": reflector.NameOf(ttl)},
	}
}

func errCacheFull(maxKeys int) error {
	return &Error{
		Kind:    CacheFull,
		Message: "Cache max keys amount exceeded",
		Data:    map[string]any{"maxKeys": maxKeys},
	}
}

func errNotFound(key string) error {
	return &Error{
		Kind:    NotFound,
		Message: fmt.Sprintf("Key `%s` not found", key),
		Data:    map[string]any{"key": key},
	}
}
