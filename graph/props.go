package graph

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// Props is an entity's property bag: field name to value.
//
// Valid value types:
// - nil
// - bool
// - string
// - signed and unsigned integers (stored as int64 / uint64)
// - float32, float64 (stored as float64)
// - []byte
// - time.Time
// - []any and map[string]any whose elements are themselves valid values
type Props map[string]any

// Clone returns a shallow copy
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Fields returns the field names in sorted order
func (p Props) Fields() []string {
	fields := make([]string, 0, len(p))
	for k := range p {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Lookup returns the value for field and whether it was present
func (p Props) Lookup(field string) (any, bool) {
	v, ok := p[field]
	return v, ok
}

// Validate checks a payload for disallowed shapes without modifying it
func Validate(p Props) error {
	_, err := Normalize(p)
	return err
}

// Normalize validates p and returns a copy whose numeric values are widened
// to int64, uint64 or float64. Stored payloads, index keys and filters are
// all normalized so that equality is exact across a round trip.
func Normalize(p Props) (Props, error) {
	out := make(Props, len(p))
	for field, v := range p {
		if field == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrInvalidData)
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidData, field, err)
		}
		out[field] = nv
	}
	return out, nil
}

// NormalizeValue widens a single value, rejecting unsupported types
func NormalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64, uint64, time.Time:
		return val, nil
	case float64:
		return canonicalFloat(val), nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uint64(val), nil
	case uint8:
		return uint64(val), nil
	case uint16:
		return uint64(val), nil
	case uint32:
		return uint64(val), nil
	case float32:
		return canonicalFloat(float64(val)), nil
	case []byte:
		return append([]byte(nil), val...), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			ne, err := NormalizeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ne
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			ne, err := NormalizeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = ne
		}
		return out, nil
	case Props:
		return NormalizeValue(map[string]any(val))
	}

	// Typed slices such as []string are accepted as []any
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ne, err := NormalizeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ne
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// canonicalFloat folds -0 into 0 and every NaN into a single NaN so equal
// values share one encoding
func canonicalFloat(f float64) float64 {
	switch {
	case f == 0:
		return 0
	case math.IsNaN(f):
		return math.NaN()
	}
	return f
}
