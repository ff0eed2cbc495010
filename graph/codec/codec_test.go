package codec

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropsRoundTrip(t *testing.T) {
	c, err := NewCodec(DefaultCompressThreshold)
	require.NoError(t, err)
	defer c.Close()

	props := map[string]any{
		"name":  "alice",
		"age":   int64(30),
		"score": 1.5,
		"ok":    true,
		"nick":  nil,
		"tags":  []any{"a", "b"},
		"raw":   []byte{1, 2, 3},
		"meta":  map[string]any{"team": "core"},
		"big":   uint64(1 << 63),
	}

	data, err := c.Encode(props)
	require.NoError(t, err)
	assert.Equal(t, formatRaw, data[0])

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, props, got)
}

func TestPropsCompression(t *testing.T) {
	c, err := NewCodec(64)
	require.NoError(t, err)
	defer c.Close()

	props := map[string]any{"body": strings.Repeat("graph ", 200)}
	data, err := c.Encode(props)
	require.NoError(t, err)
	assert.Equal(t, formatZstd, data[0])
	assert.Less(t, len(data), 1200)

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, props, got)

	// Empty bags decode to an empty, non-nil map
	data, err = c.Encode(nil)
	require.NoError(t, err)
	got, err = c.Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEncodeTuple(t *testing.T) {
	a, err := EncodeTuple([]any{"red", int64(1)})
	require.NoError(t, err)
	b, err := EncodeTuple([]any{"red", int64(1)})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Type participates in the encoding
	c, err := EncodeTuple([]any{"red", uint64(1)})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// Element boundaries are unambiguous
	x, _ := EncodeTuple([]any{"ab", "c"})
	y, _ := EncodeTuple([]any{"a", "bc"})
	assert.NotEqual(t, x, y)

	// Composite values encode deterministically regardless of map order
	m1, err := EncodeValue(map[string]any{"a": int64(1), "b": int64(2)})
	require.NoError(t, err)
	m2, err := EncodeValue(map[string]any{"b": int64(2), "a": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, m1, m2)

	_, err = EncodeValue(struct{}{})
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	enc := EncodeFields([]string{"color", "size"})
	fields, err := DecodeFields(enc)
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "size"}, fields)

	_, err = DecodeFields(enc[:len(enc)-1])
	assert.Error(t, err)
}

func TestPropsDecodeTypes(t *testing.T) {
	c, err := NewCodec(0)
	require.NoError(t, err)
	defer c.Close()

	when := time.Date(1500, 3, 1, 12, 0, 0, 42, time.UTC)
	data, err := c.Encode(map[string]any{
		"raw":    []byte("hi"),
		"when":   when,
		"nested": []any{[]byte{9}, map[string]any{"n": int64(-1)}},
	})
	require.NoError(t, err)

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got["raw"])
	assert.Equal(t, []any{[]byte{9}, map[string]any{"n": int64(-1)}}, got["nested"])
	require.IsType(t, time.Time{}, got["when"])
	assert.True(t, when.Equal(got["when"].(time.Time)))

	// Decoded values produce the same index keys as the originals
	for field, want := range map[string]any{"raw": []byte("hi"), "when": when} {
		a, err := EncodeValue(want)
		require.NoError(t, err)
		b, err := EncodeValue(got[field])
		require.NoError(t, err)
		assert.Equal(t, a, b, field)
	}
}

func TestEncodeTime(t *testing.T) {
	times := []time.Time{
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1600, 1, 1, 0, 0, 0, 1, time.UTC),
		time.Unix(-1, 999999999),
		time.Unix(0, 0),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
	}
	var prev []byte
	for i, tm := range times {
		enc, err := EncodeValue(tm)
		require.NoError(t, err)
		if i > 0 {
			assert.Equal(t, -1, bytes.Compare(prev, enc), "%s sorts after %s", tm, times[i-1])
		}
		prev = enc
	}

	// The same instant in another zone encodes identically
	utc := time.Date(2300, 6, 1, 8, 0, 0, 5, time.UTC)
	a, _ := EncodeValue(utc)
	b, _ := EncodeValue(utc.In(time.FixedZone("east", 5*3600)))
	assert.Equal(t, a, b)
}

func TestEncodeFloatCanonical(t *testing.T) {
	zero, err := EncodeValue(0.0)
	require.NoError(t, err)
	negZero, err := EncodeValue(math.Copysign(0, -1))
	require.NoError(t, err)
	assert.Equal(t, zero, negZero)

	nan1, err := EncodeValue(math.NaN())
	require.NoError(t, err)
	nan2, err := EncodeValue(math.Float64frombits(0x7ff8000000000001))
	require.NoError(t, err)
	assert.Equal(t, nan1, nan2)
}
