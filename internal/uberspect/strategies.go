package uberspect

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jexl-go/jexl/internal/values"
)

// fieldStrategy resolves exported struct fields by name (case-insensitive,
// matching the convention that script identifiers are lowerCamel while Go
// fields are exported/UpperCamel).
type fieldStrategy struct{}

func (fieldStrategy) Name() string { return "field" }

func structValue(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return rv, true
}

func findField(rv reflect.Value, key string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if strings.EqualFold(f.Name, key) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func (fieldStrategy) GetProperty(v any, key string) (PropertyGetter, bool) {
	rv, ok := structValue(v)
	if !ok {
		return nil, false
	}
	fv, ok := findField(rv, key)
	if !ok {
		return nil, false
	}
	return func() (any, error) { return fv.Interface(), nil }, true
}

func (fieldStrategy) SetProperty(v any, key string) (PropertySetter, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	fv, ok := findField(rv.Elem(), key)
	if !ok || !fv.CanSet() {
		return nil, false
	}
	return func(val any) error {
		if val == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		nv := reflect.ValueOf(val)
		if !nv.Type().AssignableTo(fv.Type()) {
			if nv.Type().ConvertibleTo(fv.Type()) {
				nv = nv.Convert(fv.Type())
			} else {
				return fmt.Errorf("uberspect: cannot assign %T to field %q of type %s", val, key, fv.Type())
			}
		}
		fv.Set(nv)
		return nil
	}, true
}

func (fieldStrategy) GetIndex(v any, key any) (IndexGetter, bool) { return nil, false }
func (fieldStrategy) SetIndex(v any, key any) (IndexSetter, bool) { return nil, false }
func (fieldStrategy) Iterate(v any) (Iterator, bool)              { return nil, false }

func (fieldStrategy) Method(v any, name string, argc int) (MethodInvoker, bool) {
	return beanMethod(v, name, argc)
}

// beanStrategy resolves JavaBean-style getters/setters: Getter "Name"/"GetName",
// setter "SetName" on struct values and pointers, plus ordinary methods.
type beanStrategy struct{}

func (beanStrategy) Name() string { return "bean" }

func methodByNames(v any, names ...string) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	for _, n := range names {
		m := rv.MethodByName(n)
		if m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (beanStrategy) GetProperty(v any, key string) (PropertyGetter, bool) {
	title := titleCase(key)
	m, ok := methodByNames(v, title, "Get"+title, "Is"+title)
	if !ok || m.Type().NumIn() != 0 || m.Type().NumOut() == 0 {
		return nil, false
	}
	return func() (any, error) {
		out := m.Call(nil)
		if len(out) == 2 {
			if err, ok := out[1].Interface().(error); ok && err != nil {
				return nil, err
			}
		}
		return out[0].Interface(), nil
	}, true
}

func (beanStrategy) SetProperty(v any, key string) (PropertySetter, bool) {
	title := titleCase(key)
	m, ok := methodByNames(v, "Set"+title)
	if !ok || m.Type().NumIn() != 1 {
		return nil, false
	}
	pt := m.Type().In(0)
	return func(val any) error {
		var av reflect.Value
		if val == nil {
			av = reflect.Zero(pt)
		} else {
			av = reflect.ValueOf(val)
			if !av.Type().AssignableTo(pt) {
				if av.Type().ConvertibleTo(pt) {
					av = av.Convert(pt)
				} else {
					return fmt.Errorf("uberspect: cannot pass %T to setter %q", val, key)
				}
			}
		}
		out := m.Call([]reflect.Value{av})
		if len(out) == 1 {
			if err, ok := out[0].Interface().(error); ok {
				return err
			}
		}
		return nil
	}, true
}

func (beanStrategy) GetIndex(v any, key any) (IndexGetter, bool) { return nil, false }
func (beanStrategy) SetIndex(v any, key any) (IndexSetter, bool) { return nil, false }
func (beanStrategy) Iterate(v any) (Iterator, bool)              { return nil, false }

func (beanStrategy) Method(v any, name string, argc int) (MethodInvoker, bool) {
	return beanMethod(v, name, argc)
}

func beanMethod(v any, name string, argc int) (MethodInvoker, bool) {
	m, ok := methodByNames(v, titleCase(name))
	if !ok || m.Type().NumIn() != argc {
		return nil, false
	}
	return reflectedInvoker(m, name), true
}

// FuncInvoker wraps a plain Go func value as a MethodInvoker, so funcs bound
// into a context are directly callable from scripts.
func FuncInvoker(v any) (MethodInvoker, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, false
	}
	return reflectedInvoker(rv, rv.Type().String()), true
}

func reflectedInvoker(m reflect.Value, name string) MethodInvoker {
	mt := m.Type()
	return func(args []any) (any, error) {
		if mt.IsVariadic() {
			if len(args) < mt.NumIn()-1 {
				return nil, fmt.Errorf("uberspect: %q expects at least %d args, got %d", name, mt.NumIn()-1, len(args))
			}
		} else if len(args) != mt.NumIn() {
			return nil, fmt.Errorf("uberspect: %q expects %d args, got %d", name, mt.NumIn(), len(args))
		}
		in := make([]reflect.Value, len(args))
		for i, a := range args {
			var pt reflect.Type
			if mt.IsVariadic() && i >= mt.NumIn()-1 {
				pt = mt.In(mt.NumIn() - 1).Elem()
			} else {
				pt = mt.In(i)
			}
			if a == nil {
				in[i] = reflect.Zero(pt)
				continue
			}
			av := reflect.ValueOf(a)
			if !av.Type().AssignableTo(pt) {
				if av.Type().ConvertibleTo(pt) {
					av = av.Convert(pt)
				} else {
					return nil, fmt.Errorf("uberspect: argument %d: cannot pass %T to %s", i, a, pt)
				}
			}
			in[i] = av
		}
		out := m.Call(in)
		switch len(out) {
		case 0:
			return nil, nil
		case 1:
			if err, ok := out[0].Interface().(error); ok {
				return nil, err
			}
			return out[0].Interface(), nil
		default:
			var err error
			if e, ok := out[len(out)-1].Interface().(error); ok {
				err = e
			}
			return out[0].Interface(), err
		}
	}
}

// mapStrategy resolves map[string]any-shaped values, the runtime
// representation of `{...}` map literals and JSON-imported objects.
type mapStrategy struct{}

func (mapStrategy) Name() string { return "map" }

func (mapStrategy) GetProperty(v any, key string) (PropertyGetter, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return func() (any, error) { return m[key], nil }, true
}

func (mapStrategy) SetProperty(v any, key string) (PropertySetter, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return func(val any) error { m[key] = val; return nil }, true
}

func (mapStrategy) GetIndex(v any, key any) (IndexGetter, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return func(k any) (any, error) { return m[fmt.Sprint(k)], nil }, true
}

func (mapStrategy) SetIndex(v any, key any) (IndexSetter, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return func(k any, val any) error { m[fmt.Sprint(k)] = val; return nil }, true
}

func (mapStrategy) Iterate(v any) (Iterator, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return &mapIterator{m: m, keys: keys}, true
}

func (mapStrategy) Method(v any, name string, argc int) (MethodInvoker, bool) { return nil, false }

type mapIterator struct {
	m    map[string]any
	keys []string
	i    int
}

func (it *mapIterator) Next() (any, bool) {
	if it.i >= len(it.keys) {
		return nil, false
	}
	k := it.keys[it.i]
	it.i++
	return k, true
}

func (it *mapIterator) Remove() error {
	if it.i == 0 || it.i > len(it.keys) {
		return fmt.Errorf("uberspect: remove() called out of sequence")
	}
	delete(it.m, it.keys[it.i-1])
	return nil
}

// listStrategy resolves []any-shaped values, the runtime representation of
// `[...]` array literals.
type listStrategy struct{}

func (listStrategy) Name() string { return "list" }

func (listStrategy) GetProperty(v any, key string) (PropertyGetter, bool) {
	a, ok := v.([]any)
	if !ok {
		return nil, false
	}
	if strings.EqualFold(key, "size") || strings.EqualFold(key, "length") {
		return func() (any, error) { return int64(len(a)), nil }, true
	}
	return nil, false
}

func (listStrategy) SetProperty(v any, key string) (PropertySetter, bool) { return nil, false }

func (listStrategy) GetIndex(v any, key any) (IndexGetter, bool) {
	a, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return func(k any) (any, error) {
		idx, ok := asInt(k)
		if !ok || idx < 0 || idx >= len(a) {
			return nil, fmt.Errorf("uberspect: index %v out of range", k)
		}
		return a[idx], nil
	}, true
}

func (listStrategy) SetIndex(v any, key any) (IndexSetter, bool) {
	a, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return func(k any, val any) error {
		idx, ok := asInt(k)
		if !ok || idx < 0 || idx >= len(a) {
			return fmt.Errorf("uberspect: index %v out of range", k)
		}
		a[idx] = val
		return nil
	}, true
}

func (listStrategy) Iterate(v any) (Iterator, bool) {
	a, ok := v.([]any)
	if !ok {
		return nil, false
	}
	// Iterate over a copy: Remove shrinks the copy, never the caller's
	// backing array. The interpreter writes the shrunk slice back to the
	// iterated lvalue via Resliced.
	cp := make([]any, len(a))
	copy(cp, a)
	return &listIterator{a: cp}, true
}

func (listStrategy) Method(v any, name string, argc int) (MethodInvoker, bool) { return nil, false }

type listIterator struct {
	a       []any
	i       int
	removed bool
}

func (it *listIterator) Next() (any, bool) {
	if it.i >= len(it.a) {
		return nil, false
	}
	v := it.a[it.i]
	it.i++
	return v, true
}

func (it *listIterator) Remove() error {
	if it.i == 0 || it.i > len(it.a) {
		return fmt.Errorf("uberspect: remove() called out of sequence")
	}
	idx := it.i - 1
	it.a = append(it.a[:idx], it.a[idx+1:]...)
	it.i--
	it.removed = true
	return nil
}

// Resliced reports the iterator's current view of the slice and whether any
// element was removed through it.
func (it *listIterator) Resliced() ([]any, bool) { return it.a, it.removed }

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}

// setStrategy resolves *values.Set, the runtime representation of `{1,2}`
// set literals.
type setStrategy struct{}

func (setStrategy) Name() string { return "set" }

func (setStrategy) GetProperty(v any, key string) (PropertyGetter, bool) {
	s, ok := v.(*values.Set)
	if !ok {
		return nil, false
	}
	if strings.EqualFold(key, "size") {
		return func() (any, error) { return int64(s.Len()), nil }, true
	}
	return nil, false
}

func (setStrategy) SetProperty(v any, key string) (PropertySetter, bool) { return nil, false }
func (setStrategy) GetIndex(v any, key any) (IndexGetter, bool)          { return nil, false }
func (setStrategy) SetIndex(v any, key any) (IndexSetter, bool)          { return nil, false }

func (setStrategy) Iterate(v any) (Iterator, bool) {
	s, ok := v.(*values.Set)
	if !ok {
		return nil, false
	}
	elems := s.Slice()
	return &setIterator{s: s, elems: elems}, true
}

func (setStrategy) Method(v any, name string, argc int) (MethodInvoker, bool) {
	s, ok := v.(*values.Set)
	if !ok {
		return nil, false
	}
	switch strings.ToLower(name) {
	case "contains":
		if argc != 1 {
			return nil, false
		}
		return func(args []any) (any, error) { return s.Contains(args[0]), nil }, true
	case "add":
		if argc != 1 {
			return nil, false
		}
		return func(args []any) (any, error) { return s.Add(args[0]), nil }, true
	case "remove":
		if argc != 1 {
			return nil, false
		}
		return func(args []any) (any, error) { return s.Remove(args[0]), nil }, true
	case "size":
		if argc != 0 {
			return nil, false
		}
		return func(args []any) (any, error) { return int64(s.Len()), nil }, true
	default:
		return nil, false
	}
}

type setIterator struct {
	s     *values.Set
	elems []any
	i     int
}

func (it *setIterator) Next() (any, bool) {
	if it.i >= len(it.elems) {
		return nil, false
	}
	v := it.elems[it.i]
	it.i++
	return v, true
}

func (it *setIterator) Remove() error {
	if it.i == 0 || it.i > len(it.elems) {
		return fmt.Errorf("uberspect: remove() called out of sequence")
	}
	it.s.Remove(it.elems[it.i-1])
	return nil
}

// rangeStrategy resolves *values.Range, the runtime representation of
// `a..b` range expressions.
type rangeStrategy struct{}

func (rangeStrategy) Name() string { return "range" }

func (rangeStrategy) GetProperty(v any, key string) (PropertyGetter, bool) {
	r, ok := v.(*values.Range)
	if !ok {
		return nil, false
	}
	switch strings.ToLower(key) {
	case "size":
		return func() (any, error) { return r.Len(), nil }, true
	case "from":
		return func() (any, error) { return r.From, nil }, true
	case "to":
		return func() (any, error) { return r.To, nil }, true
	default:
		return nil, false
	}
}

func (rangeStrategy) SetProperty(v any, key string) (PropertySetter, bool) { return nil, false }
func (rangeStrategy) GetIndex(v any, key any) (IndexGetter, bool)          { return nil, false }
func (rangeStrategy) SetIndex(v any, key any) (IndexSetter, bool)          { return nil, false }

func (rangeStrategy) Iterate(v any) (Iterator, bool) {
	r, ok := v.(*values.Range)
	if !ok {
		return nil, false
	}
	return &rangeIterator{r: r, cur: r.From}, true
}

func (rangeStrategy) Method(v any, name string, argc int) (MethodInvoker, bool) {
	r, ok := v.(*values.Range)
	if !ok {
		return nil, false
	}
	switch strings.ToLower(name) {
	case "contains":
		if argc != 1 {
			return nil, false
		}
		return func(args []any) (any, error) {
			n, _ := asInt(args[0])
			return r.Contains(int64(n)), nil
		}, true
	default:
		return nil, false
	}
}

type rangeIterator struct {
	r   *values.Range
	cur int64
	started bool
}

func (it *rangeIterator) Next() (any, bool) {
	if it.started {
		if it.r.From <= it.r.To {
			it.cur++
		} else {
			it.cur--
		}
	}
	it.started = true
	if !it.r.Contains(it.cur) {
		return nil, false
	}
	return it.cur, true
}

func (it *rangeIterator) Remove() error {
	return fmt.Errorf("uberspect: range iterator does not support remove")
}
