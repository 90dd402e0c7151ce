package cache

import (
	"reflect"
	"unicode/utf8"

	"github.com/stacksjs/ttlcache/core/clone"
	"github.com/stacksjs/ttlcache/internal/codec"
)

const scalarSize = 8

// EstimateSize approximates the memory cost of v for Stats.VSize. It is a
// bookkeeping figure and never limits what can be stored.
func EstimateSize(v any, cfg Config) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s)
	}
	if cfg.ForceString && v != nil {
		s, err := codec.String(codec.JSON, v)
		if err != nil {
			return 0
		}
		return utf8.RuneCountInString(s)
	}

	rv := reflect.ValueOf(v)
	switch clone.KindOf(v) {
	case clone.KindBytes:
		return rv.Len()
	case clone.KindSequence:
		return cfg.ArrayValueSize * rv.Len()
	case clone.KindPromise:
		return cfg.PromiseValueSize
	case clone.KindMap:
		return cfg.ObjectValueSize * rv.Len()
	case clone.KindSet:
		s, ok := v.(clone.SetLike)
		if !ok {
			p := reflect.New(rv.Type())
			p.Elem().Set(rv)
			s = p.Interface().(clone.SetLike)
		}
		return cfg.ObjectValueSize * len(s.Members())
	case clone.KindPrimitive:
		switch rv.Kind() {
		case reflect.String:
			return utf8.RuneCountInString(rv.String())
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
			return scalarSize
		}
	case clone.KindObject:
		return cfg.ObjectValueSize * exportedFields(rv)
	}
	return 0
}

func exportedFields(v reflect.Value) int {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0
	}
	t, n := v.Type(), 0
	for i := range t.NumField() {
		if t.Field(i).IsExported() {
			n++
		}
	}
	return n
}
