package lens

import "reflect"

// CloneDeep returns a deep copy of v. Maps, slices and arrays are copied
// recursively; every other value (including structs and pointers) is returned as-is.
func CloneDeep(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = CloneDeep(e)
		}
		return out
	case []any:
		if n == nil {
			return n
		}
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = CloneDeep(e)
		}
		return out
	}
	return cloneValue(reflect.ValueOf(v)).Interface()
}

func cloneValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(cloneValue(rv.Elem()))
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return out
	}
	return rv
}
