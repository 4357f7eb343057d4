package export

import (
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// Mapper is the decompose-to-mapping capability. Remote object types
// that expose named fields implement it; anything else degrades to an
// opaque textual value. AsMap may fail, in which case normalization
// falls back to the opaque form instead of propagating the error.
type Mapper interface {
	AsMap() (map[string]any, error)
}

// Normalize converts an arbitrary value into the closed Value variant.
// It is total: every input maps to exactly one Value and the function
// never panics. Unrecognized shapes become Opaque, never an error.
//
// Go maps iterate in random order, so mapping keys are sorted to keep
// normalization deterministic; callers treat key order as stable but
// not meaningful.
func Normalize(v any) Value {
	if v == nil {
		return Null()
	}

	switch x := v.(type) {
	case Value:
		return x
	case bool:
		return BoolValue(x)
	case int:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint32:
		return IntValue(int64(x))
	case uint64:
		return normalizeUint(x)
	case float32:
		return FloatValue(float64(x))
	case float64:
		return FloatValue(x)
	case string:
		return StringValue(x)
	case []byte:
		return bytesValue(x)
	case time.Time:
		return timestampValue(x)
	case *time.Time:
		if x == nil {
			return Null()
		}
		return timestampValue(*x)
	case time.Duration:
		return OpaqueValue(x.String())
	case map[string]any:
		return normalizeStringMap(x)
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			elems[i] = Normalize(e)
		}
		return SequenceValue(elems)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return normalizeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return FloatValue(rv.Float())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Map:
		return normalizeReflectedMap(rv)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, rv.Len())
			for i := range raw {
				raw[i] = byte(rv.Index(i).Uint())
			}
			return bytesValue(raw)
		}
		elems := make([]Value, rv.Len())
		for i := range elems {
			elems[i] = Normalize(rv.Index(i).Interface())
		}
		return SequenceValue(elems)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
	}

	if m, ok := v.(Mapper); ok {
		fields, err := m.AsMap()
		if err != nil {
			return OpaqueValue(fmt.Sprint(v))
		}
		return normalizeStringMap(fields)
	}

	if rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		return Normalize(rv.Elem().Interface())
	}

	return OpaqueValue(fmt.Sprint(v))
}

func bytesValue(b []byte) Value {
	return Value{Kind: KindBytes, Text: hex.EncodeToString(b)}
}

func timestampValue(t time.Time) Value {
	return Value{Kind: KindTimestamp, Text: t.Format(time.RFC3339)}
}

func normalizeUint(u uint64) Value {
	if u > math.MaxInt64 {
		// Out of int64 range; keep the digits rather than wrapping.
		return OpaqueValue(fmt.Sprintf("%d", u))
	}
	return IntValue(int64(u))
}

func normalizeStringMap(m map[string]any) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]Field, len(keys))
	for i, k := range keys {
		fields[i] = Field{Key: k, Value: Normalize(m[k])}
	}
	return MappingValue(fields)
}

func normalizeReflectedMap(rv reflect.Value) Value {
	entries := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := fmt.Sprint(iter.Key().Interface())
		entries[key] = iter.Value().Interface()
	}
	return normalizeStringMap(entries)
}
