// Package codec serializes property bags for storage and encodes values and
// value tuples into deterministic byte strings for index keys.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ValueType represents the type tag of an encoded value
type ValueType byte

const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt
	TypeUint
	TypeFloat
	TypeString
	TypeBytes
	TypeTime
	TypeComposite
)

// Type returns the type of a normalized value
func Type(v any) (ValueType, error) {
	switch v.(type) {
	case nil:
		return TypeNull, nil
	case bool:
		return TypeBool, nil
	case int64:
		return TypeInt, nil
	case uint64:
		return TypeUint, nil
	case float64:
		return TypeFloat, nil
	case string:
		return TypeString, nil
	case []byte:
		return TypeBytes, nil
	case time.Time:
		return TypeTime, nil
	case []any, map[string]any:
		return TypeComposite, nil
	}
	return 0, fmt.Errorf("cannot encode value type: %T", v)
}

// EncodeValue serializes a normalized value as a type byte followed by its
// payload. Equal values always produce equal bytes.
func EncodeValue(v any) ([]byte, error) {
	vType, err := Type(v)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch val := v.(type) {
	case nil:
	case bool:
		if val {
			payload = []byte{1}
		} else {
			payload = []byte{0}
		}
	case int64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(val))
	case uint64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, val)
	case float64:
		switch {
		case val == 0:
			val = 0
		case math.IsNaN(val):
			val = math.NaN()
		}
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, math.Float64bits(val))
	case string:
		payload = []byte(val)
	case []byte:
		payload = val
	case time.Time:
		// Seconds with the sign bit flipped sort in time order, then nanos
		payload = make([]byte, 12)
		binary.BigEndian.PutUint64(payload, uint64(val.Unix())^(1<<63))
		binary.BigEndian.PutUint32(payload[8:], uint32(val.Nanosecond()))
	case []any, map[string]any:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(val); err != nil {
			return nil, fmt.Errorf("failed to encode composite value: %w", err)
		}
		payload = buf.Bytes()
	}

	out := make([]byte, 1+len(payload))
	out[0] = byte(vType)
	copy(out[1:], payload)
	return out, nil
}

// EncodeTuple serializes a sequence of values. Each element is length
// prefixed so tuples never collide.
func EncodeTuple(values []any) ([]byte, error) {
	var buf bytes.Buffer
	for i, v := range values {
		enc, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("tuple element %d: %w", i, err)
		}
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(enc)))
		buf.Write(size[:])
		buf.Write(enc)
	}
	return buf.Bytes(), nil
}

// EncodeFields serializes a list of field names, length prefixed
func EncodeFields(fields []string) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		var size [2]byte
		binary.BigEndian.PutUint16(size[:], uint16(len(f)))
		buf.Write(size[:])
		buf.WriteString(f)
	}
	return buf.Bytes()
}

// DecodeFields is the inverse of EncodeFields
func DecodeFields(data []byte) ([]string, error) {
	var fields []string
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, fmt.Errorf("field list truncated")
		}
		n := int(binary.BigEndian.Uint16(data))
		data = data[2:]
		if len(data) < n {
			return nil, fmt.Errorf("field list truncated: expected %d bytes, got %d", n, len(data))
		}
		fields = append(fields, string(data[:n]))
		data = data[n:]
	}
	return fields, nil
}
