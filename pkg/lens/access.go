package lens

import (
	"fmt"
	"reflect"
)

// lookup returns the value stored under seg in node.
// ok is false when node is a container with no such entry.
func lookup(node any, seg Segment) (v any, ok bool, err error) {
	// Fast paths for the decoded-JSON shapes.
	switch n := node.(type) {
	case nil:
		return nil, false, ErrUnresolved
	case map[string]any:
		if seg.kind != SegmentKey {
			return nil, false, fmt.Errorf("%w: %s on map[string]any", ErrNotContainer, seg)
		}
		v, ok = n[seg.name]
		return v, ok, nil
	case []any:
		if seg.kind != SegmentIndex {
			return nil, false, fmt.Errorf("%w: %s on []any", ErrNotContainer, seg)
		}
		if seg.index < 0 || seg.index >= len(n) {
			return nil, false, nil
		}
		return n[seg.index], true, nil
	}

	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nil, false, nil
		}
		k, err := mapKey(rv.Type().Key(), seg)
		if err != nil {
			return nil, false, err
		}
		e := rv.MapIndex(k)
		if !e.IsValid() {
			return nil, false, nil
		}
		return e.Interface(), true, nil

	case reflect.Slice, reflect.Array:
		if seg.kind != SegmentIndex {
			return nil, false, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
		}
		if seg.index < 0 || seg.index >= rv.Len() {
			return nil, false, nil
		}
		return rv.Index(seg.index).Interface(), true, nil

	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false, ErrUnresolved
		}
		if rv.Elem().Kind() != reflect.Struct {
			return nil, false, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
		}
		return field(rv.Elem(), seg)

	case reflect.Struct:
		return field(rv, seg)
	}
	return nil, false, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
}

func field(rv reflect.Value, seg Segment) (any, bool, error) {
	if seg.kind != SegmentKey {
		return nil, false, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
	}
	f, ok := rv.Type().FieldByName(seg.name)
	if !ok || !f.IsExported() {
		return nil, false, nil
	}
	return rv.FieldByIndex(f.Index).Interface(), true, nil
}

// mapKey converts seg into a key value for a map with key type kt.
func mapKey(kt reflect.Type, seg Segment) (reflect.Value, error) {
	var k reflect.Value
	switch seg.kind {
	case SegmentKey:
		k = reflect.ValueOf(seg.name)
		if kt.Kind() == reflect.String {
			return k.Convert(kt), nil
		}
	case SegmentIndex:
		k = reflect.ValueOf(seg.index)
		switch kt.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return k.Convert(kt), nil
		}
	case SegmentSymbol:
		k = reflect.ValueOf(seg.sym)
	default:
		return reflect.Value{}, fmt.Errorf("%w: empty segment", ErrNotContainer)
	}
	if k.Type().AssignableTo(kt) {
		return k, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s as %s key", ErrNotContainer, seg, kt)
}

// assign returns a shallow copy of node with seg holding v.
func assign(node any, seg Segment, v any) (any, error) {
	switch n := node.(type) {
	case nil:
		return nil, ErrUnresolved
	case map[string]any:
		if seg.kind != SegmentKey {
			return nil, fmt.Errorf("%w: %s on map[string]any", ErrNotContainer, seg)
		}
		out := make(map[string]any, len(n)+1)
		for k, e := range n {
			out[k] = e
		}
		out[seg.name] = v
		return out, nil
	case []any:
		if seg.kind != SegmentIndex {
			return nil, fmt.Errorf("%w: %s on []any", ErrNotContainer, seg)
		}
		if seg.index < 0 || seg.index > len(n) {
			return nil, fmt.Errorf("index %d of %d: %w", seg.index, len(n), ErrUnresolved)
		}
		size := len(n)
		if seg.index == size {
			size++
		}
		out := make([]any, size)
		copy(out, n)
		out[seg.index] = v
		return out, nil
	}

	rv := reflect.ValueOf(node)
	switch rv.Kind() {
	case reflect.Map:
		k, err := mapKey(rv.Type().Key(), seg)
		if err != nil {
			return nil, err
		}
		e, err := fit(rv.Type().Elem(), v)
		if err != nil {
			return nil, err
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len()+1)
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		out.SetMapIndex(k, e)
		return out.Interface(), nil

	case reflect.Slice:
		if seg.kind != SegmentIndex {
			return nil, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
		}
		if seg.index < 0 || seg.index > rv.Len() {
			return nil, fmt.Errorf("index %d of %d: %w", seg.index, rv.Len(), ErrUnresolved)
		}
		e, err := fit(rv.Type().Elem(), v)
		if err != nil {
			return nil, err
		}
		size := rv.Len()
		if seg.index == size {
			size++
		}
		out := reflect.MakeSlice(rv.Type(), size, size)
		reflect.Copy(out, rv)
		out.Index(seg.index).Set(e)
		return out.Interface(), nil

	case reflect.Array:
		if seg.kind != SegmentIndex {
			return nil, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
		}
		if seg.index < 0 || seg.index >= rv.Len() {
			return nil, fmt.Errorf("index %d of %d: %w", seg.index, rv.Len(), ErrUnresolved)
		}
		e, err := fit(rv.Type().Elem(), v)
		if err != nil {
			return nil, err
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		out.Index(seg.index).Set(e)
		return out.Interface(), nil

	case reflect.Pointer:
		if rv.IsNil() {
			return nil, ErrUnresolved
		}
		if rv.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(rv.Elem())
		if err := setField(out.Elem(), seg, v); err != nil {
			return nil, err
		}
		return out.Interface(), nil

	case reflect.Struct:
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		if err := setField(out, seg, v); err != nil {
			return nil, err
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
}

func setField(rv reflect.Value, seg Segment, v any) error {
	if seg.kind != SegmentKey {
		return fmt.Errorf("%w: %s on %s", ErrNotContainer, seg, rv.Type())
	}
	f, ok := rv.Type().FieldByName(seg.name)
	if !ok || !f.IsExported() {
		return fmt.Errorf("%w: no exported field %q in %s", ErrNotContainer, seg.name, rv.Type())
	}
	e, err := fit(f.Type, v)
	if err != nil {
		return err
	}
	rv.FieldByIndex(f.Index).Set(e)
	return nil
}

// fit converts v into a value assignable to t.
func fit(t reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil into %s", ErrTypeMismatch, t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s into %s", ErrTypeMismatch, rv.Type(), t)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsContainer reports whether v can hold child segments.
func IsContainer(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case map[string]any, []any:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	case reflect.Pointer:
		return !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
	}
	return false
}

// Len returns the element count of a slice, array or map, and 0 otherwise.
func Len(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case []any:
		return len(n)
	case map[string]any:
		return len(n)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len()
	}
	return 0
}

// IsList reports whether v is slice- or array-shaped.
func IsList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
