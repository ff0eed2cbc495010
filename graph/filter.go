package graph

import (
	"bytes"
	"math"
	"reflect"
	"time"
)

// Filter is a set of exact-match field=value predicates. A field missing from
// an entity's data compares as nil.
type Filter Props

// Empty reports whether the filter has no predicates
func (f Filter) Empty() bool {
	return len(f) == 0
}

// Fields returns the filtered field names in canonical (sorted) order
func (f Filter) Fields() []string {
	return Props(f).Fields()
}

// Values returns the filter values ordered like Fields
func (f Filter) Values() []any {
	fields := f.Fields()
	values := make([]any, len(fields))
	for i, field := range fields {
		values[i] = f[field]
	}
	return values
}

// Normalize widens the filter values the same way stored data is widened
func (f Filter) Normalize() (Filter, error) {
	p, err := Normalize(Props(f))
	if err != nil {
		return nil, err
	}
	return Filter(p), nil
}

// Match reports whether data satisfies every predicate
func (f Filter) Match(data Props) bool {
	for field, want := range f {
		if !Equal(data[field], want) {
			return false
		}
	}
	return true
}

// Project extracts the values of fields from data, nil for missing fields
func Project(data Props, fields []string) []any {
	values := make([]any, len(fields))
	for i, field := range fields {
		values[i] = data[field]
	}
	return values
}

// Equal compares two normalized values. NaN equals NaN and -0 equals 0, the
// same way their index keys compare.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && (av == bv || math.IsNaN(av) && math.IsNaN(bv))
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any, map[string]any:
		return reflect.DeepEqual(a, b)
	}
	return a == b
}
