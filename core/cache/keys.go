package cache

import (
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// canonicalKey maps an accepted key to its string form. Strings are used
// as is; integers (and floats holding an integral value) are formatted in
// base 10, so 7, int64(7) and 7.0 all address the key "7".
func canonicalKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case int:
		return strconv.Itoa(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case uint64:
		return strconv.FormatUint(k, 10), nil
	}

	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			break
		}
		return strconv.FormatInt(int64(f), 10), nil
	}
	return "", errInvalidKey(key)
}

// isFalsyKey reports the keys TTL and GetTTL refuse outright: the empty
// string and numeric zero.
func isFalsyKey(key any) bool {
	if key == nil {
		return true
	}
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.String:
		return v.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

// keyList flattens the arguments of Del and MGet: slices and arrays
// contribute their elements, anything else is a single key.
func keyList(args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		switch k := a.(type) {
		case []any:
			out = append(out, k...)
			continue
		case []string:
			for _, s := range k {
				out = append(out, s)
			}
			continue
		}
		v := reflect.ValueOf(a)
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			for i := range v.Len() {
				out = append(out, v.Index(i).Interface())
			}
			continue
		}
		out = append(out, a)
	}
	return out
}

func keySize(key string) int {
	return utf8.RuneCountInString(key)
}
