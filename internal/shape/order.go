package shape

import (
	"cmp"
	"reflect"
	"slices"
	"strings"
)

// SortedKeys returns the keys of map m in a deterministic order, so that
// encoding the same map twice yields the same bytes.
func SortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	slices.SortFunc(keys, Compare)
	return keys
}

// SortedEntries returns the keys of map m and their values, ordered like
// SortedKeys. Values are taken from iteration rather than looked up by key,
// so keys that never compare equal to themselves (NaN) keep their value.
// NaN keys sort first; ties fall back to the values.
func SortedEntries(m reflect.Value) (keys, values []reflect.Value) {
	type entry struct{ k, v reflect.Value }
	entries := make([]entry, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		entries = append(entries, entry{iter.Key(), iter.Value()})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := Compare(a.k, b.k); c != 0 {
			return c
		}
		return Compare(a.v, b.v)
	})
	keys = make([]reflect.Value, len(entries))
	values = make([]reflect.Value, len(entries))
	for i, e := range entries {
		keys[i], values[i] = e.k, e.v
	}
	return keys, values
}

// Compare orders two values of the same type: natural order for numbers,
// booleans and strings, element-wise for arrays and structs, nil first for
// pointers. NaN sorts before every other float and equal to itself.
func Compare(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.Bool:
		switch {
		case a.Bool() == b.Bool():
			return 0
		case b.Bool():
			return -1
		default:
			return 1
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := a.Complex(), b.Complex()
		if c := cmp.Compare(real(ca), real(cb)); c != 0 {
			return c
		}
		return cmp.Compare(imag(ca), imag(cb))
	case reflect.String:
		return strings.Compare(a.String(), b.String())
	case reflect.Array:
		for i := range a.Len() {
			if c := Compare(a.Index(i), b.Index(i)); c != 0 {
				return c
			}
		}
		return 0
	case reflect.Struct:
		for i := range a.NumField() {
			if c := Compare(a.Field(i), b.Field(i)); c != 0 {
				return c
			}
		}
		return 0
	case reflect.Pointer, reflect.Interface:
		switch {
		case a.IsNil() && b.IsNil():
			return 0
		case a.IsNil():
			return -1
		case b.IsNil():
			return 1
		}
		if a.Kind() == reflect.Interface && a.Elem().Type() != b.Elem().Type() {
			return strings.Compare(a.Elem().Type().String(), b.Elem().Type().String())
		}
		return Compare(a.Elem(), b.Elem())
	default:
		return 0
	}
}
