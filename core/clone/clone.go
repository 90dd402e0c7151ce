package clone

import (
	"math"
	"reflect"
)

// Infinite disables the depth limit.
const Infinite = math.MaxInt

type plainPrototype struct{}

// Plain is a prototype that detaches copies from their types: every struct
// is copied into a map[string]any holding its fields.
var Plain any = &plainPrototype{}

// Options is the record form of the copy parameters. The zero value tracks
// cycles and copies the whole graph.
type Options struct {
	// Acyclic turns off tracking of visited references. Cyclic graphs then
	// never terminate and shared references are copied once per path.
	Acyclic bool
	// Depth limits how many container levels are copied. Below the limit
	// the original references are kept. nil or a negative depth means
	// Infinite, 0 returns the value unchanged.
	Depth *int
	// Prototype selects the type of copied structs: nil keeps the source
	// type, Plain yields map[string]any, a struct (or pointer to struct)
	// value yields that struct type with fields matched by name.
	Prototype any
	// IncludeNonEnumerable also copies unexported struct fields.
	IncludeNonEnumerable bool
}

// Levels returns a depth for Options.Depth.
func Levels(n int) *int { return &n }

// DefaultOptions returns circular tracking with no depth limit.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) depth() int {
	if o.Depth == nil || *o.Depth < 0 {
		return Infinite
	}
	return *o.Depth
}

type Option func(*Options)

func WithCircular(circular bool) Option {
	return func(o *Options) { o.Acyclic = !circular }
}

// WithDepth limits the copy depth; depth < 0 means Infinite and depth 0
// returns the value unchanged.
func WithDepth(depth int) Option {
	return func(o *Options) { o.Depth = Levels(depth) }
}

func WithPrototype(proto any) Option {
	return func(o *Options) { o.Prototype = proto }
}

func WithNonEnumerable(include bool) Option {
	return func(o *Options) { o.IncludeNonEnumerable = include }
}

// Clone returns a deep copy of v. Without options it tracks cycles and
// copies the whole graph.
func Clone(v any, opts ...Option) any {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return run(v, o)
}

// Copy is the positional form of Clone. depth < 0 means Infinite, depth 0
// returns v unchanged.
func Copy(v any, circular bool, depth int, prototype any, includeNonEnumerable bool) any {
	return run(v, Options{
		Acyclic:              !circular,
		Depth:                Levels(depth),
		Prototype:            prototype,
		IncludeNonEnumerable: includeNonEnumerable,
	})
}

// CopyWith copies v using the record form of the parameters.
func CopyWith(v any, o Options) any {
	return run(v, o)
}

// Of is a typed Clone. It panics if a prototype option changes the type of
// the copy away from T.
func Of[T any](v T, opts ...Option) T {
	out := Clone(v, opts...)
	if out == nil {
		var zero T
		return zero
	}
	return out.(T)
}

// FromPrototype returns a pointer to a new zero value of proto's type
// without copying any fields. A nil proto yields an empty map[string]any.
func FromPrototype(proto any) any {
	t := reflect.TypeOf(proto)
	if t == nil || proto == Plain {
		return map[string]any{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

func run(v any, o Options) any {
	depth := o.depth()
	if depth == 0 {
		return v
	}
	c := newCopier(o)
	out := c.copy(reflect.ValueOf(v), depth)
	if !out.IsValid() || !out.CanInterface() {
		return v
	}
	return out.Interface()
}
