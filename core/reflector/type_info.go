// Package reflector names Go types for diagnostics. Lookups are cached
// per reflect.Type.
package reflector

import (
	"reflect"
	"sync"
)

// the number of distinct types seen by a program is small; the table is
// reset rather than evicted once it reaches this size.
const maxCacheSize = 1024

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

type TypeInfo struct {
	// Name is "pkg/path.Type" for named types and the Go syntax of the
	// type otherwise ("int", "[]string", "map[string]any").
	Name string
	// Short is the type as it would be written by a caller of its package,
	// e.g. "ds.Set[int]" or "[]string".
	Short string
	Type  reflect.Type
}

// TypeInfoOf describes the dynamic type of x. A nil x yields the zero
// TypeInfo.
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

// TypeInfoForType describes t. Pointers are described by their element
// type.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{Name: t.String(), Short: t.String(), Type: t}
	if t.Name() != "" && t.PkgPath() != "" {
		ti.Name = t.PkgPath() + "." + t.Name()
	}

	muCache.Lock()
	defer muCache.Unlock()
	if existing, ok := cache[t]; ok {
		return existing
	}
	if len(cache) >= maxCacheSize {
		cache = make(map[reflect.Type]TypeInfo)
	}
	cache[t] = ti
	return ti
}

// NameOf returns the short type name of x, or "nil".
func NameOf(x any) string {
	if x == nil {
		return "nil"
	}
	return TypeInfoOf(x).Short
}
