package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the values an action payload or a state
// snapshot may contain. Only Null, String, Int, Bool, Array and Object
// implement it.
type Value interface {
	irValue()
}

// Null is an explicit JSON null. It is accepted when reading stored data but
// rejected by MarshalCanonical.
type Null struct{}

// String is a string value.
type String string

// Int is an integer value. There is no float counterpart.
type Int int64

// Bool is a boolean value.
type Bool bool

// Array is an ordered list of values.
type Array []Value

// Object maps keys to values. Iterate with SortedKeys for determinism.
type Object map[string]Value

func (Null) irValue()   {}
func (String) irValue() {}
func (Int) irValue()    {}
func (Bool) irValue()   {}
func (Array) irValue()  {}
func (Object) irValue() {}

// Strings builds an Array of String values.
func Strings(ss ...string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns the object's keys in RFC 8785 order (UTF-16 code units).
// This differs from Go's byte-wise string order for characters outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// Clone returns a deep copy of the object.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Object:
		return val.Clone()
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

// GetString returns the string stored under key.
// ok is false when the key is missing or holds another type.
func (o Object) GetString(key string) (string, bool) {
	s, ok := o[key].(String)
	return string(s), ok
}

// GetInt returns the integer stored under key.
func (o Object) GetInt(key string) (int64, bool) {
	n, ok := o[key].(Int)
	return int64(n), ok
}

// GetBool returns the boolean stored under key.
func (o Object) GetBool(key string) (bool, bool) {
	b, ok := o[key].(Bool)
	return bool(b), ok
}

// GetObject returns the nested object stored under key.
func (o Object) GetObject(key string) (Object, bool) {
	obj, ok := o[key].(Object)
	return obj, ok
}

// GetArray returns the array stored under key.
func (o Object) GetArray(key string) (Array, bool) {
	arr, ok := o[key].(Array)
	return arr, ok
}

// Merge returns a copy of base with every key of overlay applied on top.
// Nested objects are merged recursively; every other value is replaced.
func Merge(base, overlay Object) Object {
	out := base.Clone()
	if out == nil {
		out = Object{}
	}
	for k, v := range overlay {
		if sub, ok := v.(Object); ok {
			if existing, ok := out[k].(Object); ok {
				out[k] = Merge(existing, sub)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

// FromAny converts decoded YAML/JSON data into a Value.
//
// Integral floats (as produced by some decoders) are accepted; fractional
// ones and nil are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not allowed")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not allowed: %v", val)
		}
		return Int(int64(val)), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// ObjectFromAny is FromAny for values that must decode to an object.
// A nil map yields an empty Object.
func ObjectFromAny(m map[string]any) (Object, error) {
	if m == nil {
		return Object{}, nil
	}
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(Object), nil
}

// ToAny converts a Value back to plain Go data (map[string]any, []any,
// string, int64, bool, nil).
func ToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
