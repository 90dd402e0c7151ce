package clone

import (
	"reflect"
	"regexp"
	"time"
)

// Kind classifies a value for copying. The copier dispatches on it in
// declaration order, the first matching kind wins.
type Kind int

const (
	KindNil Kind = iota
	KindPrimitive
	KindMap
	KindSet
	KindPromise
	KindBytes
	KindSequence
	KindPattern
	KindInstant
	KindError
	KindObject
)

var kindNames = [...]string{
	KindNil:       "nil",
	KindPrimitive: "primitive",
	KindMap:       "map",
	KindSet:       "set",
	KindPromise:   "promise",
	KindBytes:     "bytes",
	KindSequence:  "sequence",
	KindPattern:   "pattern",
	KindInstant:   "instant",
	KindError:     "error",
	KindObject:    "object",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// SetLike is a unique-element container the copier can rebuild member by
// member. *ds.Set[T] implements it. A struct whose pointer implements it is
// a set too and is copied by value.
type SetLike interface {
	Members() []any
	NewEmpty() any
	Insert(v any) bool
}

var (
	typeTime      = reflect.TypeFor[time.Time]()
	typeRegexp    = reflect.TypeFor[*regexp.Regexp]()
	typePattern   = reflect.TypeFor[*Pattern]()
	typePromise   = reflect.TypeFor[*Promise]()
	typeError     = reflect.TypeFor[error]()
	typeSetLike   = reflect.TypeFor[SetLike]()
	typePlainData = reflect.TypeFor[map[string]any]()
)

// KindOf returns the copy kind of v.
func KindOf(v any) Kind {
	return kindOfValue(reflect.ValueOf(v))
}

func kindOfValue(v reflect.Value) Kind {
	if !v.IsValid() {
		return KindNil
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return KindNil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return KindNil
		}
	}

	t := v.Type()
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return KindPrimitive
	case reflect.Map:
		return KindMap
	}

	switch {
	case t.Implements(typeSetLike), t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(typeSetLike):
		return KindSet
	case t == typePromise:
		return KindPromise
	case isByteSlice(t):
		return KindBytes
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Array:
		return KindSequence
	case t == typePattern || t == typeRegexp:
		return KindPattern
	case t == typeTime:
		return KindInstant
	case t.Implements(typeError):
		return KindError
	}
	return KindObject
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// IsSequence reports whether v is an ordered sequence (a slice or array
// that is not a byte buffer).
func IsSequence(v any) bool { return KindOf(v) == KindSequence }

// IsInstant reports whether v is a time.Time or a non-nil *time.Time.
func IsInstant(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	}
	return false
}

// IsPattern reports whether v is a *Pattern or a *regexp.Regexp.
func IsPattern(v any) bool { return KindOf(v) == KindPattern }
