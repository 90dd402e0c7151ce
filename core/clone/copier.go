package clone

import (
	"context"
	"reflect"
	"regexp"
	"slices"
	"time"
	"unsafe"
)

// identity of a reference: its type and address, plus the length for
// slices sharing a backing array.
type identity struct {
	t reflect.Type
	p uintptr
	n int
}

type visit struct {
	id  identity
	dst reflect.Value
}

type copier struct {
	circular bool
	nonEnum  bool
	plain    bool
	proto    reflect.Type

	// visited is scanned linearly; it only holds reference-typed sources.
	visited []visit
}

func newCopier(o Options) *copier {
	c := &copier{
		circular: !o.Acyclic,
		nonEnum:  o.IncludeNonEnumerable,
	}
	switch {
	case o.Prototype == nil:
	case o.Prototype == Plain:
		c.plain = true
	default:
		t := reflect.TypeOf(o.Prototype)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct {
			c.proto = t
		} else if t == typePlainData {
			c.plain = true
		}
	}
	return c
}

// fork returns a copier for work that outlives the current call. It sees
// the references visited so far but records into its own list.
func (c *copier) fork() *copier {
	f := *c
	f.visited = slices.Clone(c.visited)
	return &f
}

func isRef(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

func identityOf(v reflect.Value) identity {
	id := identity{t: v.Type(), p: v.Pointer()}
	if v.Kind() == reflect.Slice {
		id.n = v.Len()
	}
	return id
}

func (c *copier) lookup(v reflect.Value) (reflect.Value, bool) {
	if !c.circular || !isRef(v) {
		return reflect.Value{}, false
	}
	id := identityOf(v)
	for _, e := range c.visited {
		if e.id == id {
			return e.dst, true
		}
	}
	return reflect.Value{}, false
}

func (c *copier) record(src, dst reflect.Value) {
	if !c.circular || !isRef(src) {
		return
	}
	c.visited = append(c.visited, visit{id: identityOf(src), dst: dst})
}

func (c *copier) copy(v reflect.Value, depth int) reflect.Value {
	if !v.IsValid() || !v.CanInterface() {
		return v
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		return c.copy(v.Elem(), depth)
	}

	kind := kindOfValue(v)
	if kind == KindNil || kind == KindPrimitive {
		return v
	}
	if depth == 0 {
		return v
	}
	if dst, ok := c.lookup(v); ok {
		return dst
	}

	switch kind {
	case KindMap:
		return c.copyMap(v, depth)
	case KindSet:
		return c.copySet(v, depth)
	case KindPromise:
		return c.copyPromise(v, depth)
	case KindBytes:
		return c.copyBytes(v)
	case KindSequence:
		return c.copySequence(v, depth)
	case KindPattern:
		return c.copyPattern(v)
	case KindInstant:
		return copyInstant(v)
	case KindError:
		return c.copyError(v)
	default:
		return c.copyObject(v, depth)
	}
}

func (c *copier) copyAny(x any, depth int) any {
	out := c.copy(reflect.ValueOf(x), depth)
	if !out.IsValid() || !out.CanInterface() {
		return x
	}
	return out.Interface()
}

// fit returns out when it can be stored in a slot of type t, else orig.
func fit(out reflect.Value, t reflect.Type, orig reflect.Value) reflect.Value {
	if out.IsValid() && out.Type().AssignableTo(t) {
		return out
	}
	return orig
}

func (c *copier) copyMap(v reflect.Value, depth int) reflect.Value {
	t := v.Type()
	out := reflect.MakeMapWithSize(t, v.Len())
	c.record(v, out)

	iter := v.MapRange()
	for iter.Next() {
		k, e := iter.Key(), iter.Value()
		out.SetMapIndex(
			fit(c.copyKey(k, depth-1), t.Key(), k),
			fit(c.copy(e, depth-1), t.Elem(), e),
		)
	}
	return out
}

// copyKey copies reference keys only; value keys are already independent
// and copying them could merge distinct keys.
func (c *copier) copyKey(k reflect.Value, depth int) reflect.Value {
	inner := k
	for inner.Kind() == reflect.Interface && !inner.IsNil() {
		inner = inner.Elem()
	}
	if inner.Kind() != reflect.Pointer {
		return k
	}
	return c.copy(k, depth)
}

func (c *copier) copySet(v reflect.Value, depth int) reflect.Value {
	src, byPointer := v.Interface().(SetLike)
	if !byPointer {
		// set held by value, its methods are on the pointer
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		src = p.Interface().(SetLike)
	}
	dst, ok := src.NewEmpty().(SetLike)
	if !ok {
		return v
	}
	out := reflect.ValueOf(dst)
	c.record(v, out)

	for _, m := range src.Members() {
		dst.Insert(c.copyAny(m, depth-1))
	}
	if !byPointer {
		if out.Kind() != reflect.Pointer || out.Elem().Type() != v.Type() {
			return v
		}
		return out.Elem()
	}
	return out
}

func (c *copier) copyPromise(v reflect.Value, depth int) reflect.Value {
	src := v.Interface().(*Promise)
	dst := NewPromise()
	out := reflect.ValueOf(dst)
	c.record(v, out)

	async := c.fork()
	go func() {
		val, err := src.Await(context.Background())
		if err != nil {
			if e, ok := async.copyAny(err, depth-1).(error); ok {
				err = e
			}
			dst.Reject(err)
			return
		}
		dst.Resolve(async.copyAny(val, depth-1))
	}()
	return out
}

func (c *copier) copyBytes(v reflect.Value) reflect.Value {
	out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(out, v)
	c.record(v, out)
	return out
}

func (c *copier) copySequence(v reflect.Value, depth int) reflect.Value {
	var out reflect.Value
	if v.Kind() == reflect.Array {
		out = reflect.New(v.Type()).Elem()
	} else {
		out = reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.record(v, out)
	}

	et := v.Type().Elem()
	for i := 0; i < v.Len(); i++ {
		e := v.Index(i)
		out.Index(i).Set(fit(c.copy(e, depth-1), et, e))
	}
	return out
}

func (c *copier) copyPattern(v reflect.Value) reflect.Value {
	var out reflect.Value
	switch p := v.Interface().(type) {
	case *Pattern:
		out = reflect.ValueOf(p.copyPattern())
	case *regexp.Regexp:
		out = reflect.ValueOf(regexp.MustCompile(p.String()))
	default:
		return v
	}
	c.record(v, out)
	return out
}

func copyInstant(v reflect.Value) reflect.Value {
	t := v.Interface().(time.Time)
	return reflect.ValueOf(time.Unix(t.Unix(), int64(t.Nanosecond())).In(t.Location()))
}

func (c *copier) copyError(v reflect.Value) reflect.Value {
	err, ok := v.Interface().(error)
	if !ok {
		return v
	}
	out := reflect.ValueOf(&linkedError{proto: err})
	c.record(v, out)
	return out
}

func (c *copier) copyObject(v reflect.Value, depth int) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		elem := v.Elem()
		if elem.Kind() != reflect.Struct || kindOfValue(elem) != KindObject {
			out := reflect.New(elem.Type())
			c.record(v, out)
			out.Elem().Set(fit(c.copy(elem, depth), elem.Type(), elem))
			return out
		}
		if c.plain {
			m := map[string]any{}
			out := reflect.ValueOf(m)
			c.record(v, out)
			c.plainFields(elem, m, depth)
			return out
		}
		st := elem.Type()
		if c.proto != nil {
			st = c.proto
		}
		out := reflect.New(st)
		c.record(v, out)
		if st == elem.Type() {
			out.Elem().Set(elem)
		}
		c.copyFields(elem, out.Elem(), depth)
		return out

	case reflect.Struct:
		if !v.CanAddr() {
			tmp := reflect.New(v.Type()).Elem()
			tmp.Set(v)
			v = tmp
		}
		if c.plain {
			m := map[string]any{}
			c.plainFields(v, m, depth)
			return reflect.ValueOf(m)
		}
		st := v.Type()
		if c.proto != nil {
			st = c.proto
		}
		out := reflect.New(st).Elem()
		if st == v.Type() {
			out.Set(v)
		}
		c.copyFields(v, out, depth)
		return out
	}
	return v
}

// field returns struct field i of an addressable struct, readable and
// settable even when unexported.
func field(s reflect.Value, i int) reflect.Value {
	f := s.Field(i)
	if f.CanSet() {
		return f
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

// copyFields deep-copies the fields of src into dst. Unexported fields are
// skipped unless nonEnum is set; a dst seeded from src keeps them shallow.
func (c *copier) copyFields(src, dst reflect.Value, depth int) {
	st, dt := src.Type(), dst.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() && !c.nonEnum {
			continue
		}

		di := i
		if st != dt {
			df, ok := dt.FieldByName(sf.Name)
			if !ok || len(df.Index) != 1 || (!df.IsExported() && !c.nonEnum) {
				continue
			}
			di = df.Index[0]
		}

		sv := field(src, i)
		dv := field(dst, di)
		out := c.copy(sv, depth-1)
		switch {
		case out.IsValid() && out.Type().AssignableTo(dv.Type()):
			dv.Set(out)
		case sv.Type().AssignableTo(dv.Type()):
			dv.Set(sv)
		}
	}
}

func (c *copier) plainFields(src reflect.Value, m map[string]any, depth int) {
	st := src.Type()
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() && !c.nonEnum {
			continue
		}
		m[sf.Name] = c.copyAny(field(src, i).Interface(), depth-1)
	}
}
