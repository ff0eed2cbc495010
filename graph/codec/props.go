package codec

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/wbrown/janus-graph/graph"
)

// Payload header byte
const (
	formatRaw  byte = 0
	formatZstd byte = 1
)

// DefaultCompressThreshold is the payload size above which bags are compressed
const DefaultCompressThreshold = 4096

// Codec encodes property bags as msgpack maps, compressing payloads larger
// than Threshold with zstd. A zero Threshold disables compression.
type Codec struct {
	Threshold int

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec creates a codec with the given compression threshold
func NewCodec(threshold int) (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{Threshold: threshold, enc: enc, dec: dec}, nil
}

// Encode serializes a normalized property bag
func (c *Codec) Encode(props map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(formatRaw)

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if props == nil {
		props = map[string]any{}
	}
	if err := enc.Encode(props); err != nil {
		return nil, fmt.Errorf("failed to encode properties: %w", err)
	}

	data := buf.Bytes()
	if c.Threshold > 0 && len(data)-1 > c.Threshold {
		compressed := c.enc.EncodeAll(data[1:], []byte{formatZstd})
		if len(compressed) < len(data) {
			return compressed, nil
		}
	}
	return data, nil
}

// Decode deserializes a property bag written by Encode. Binary values come
// back as []byte and numbers are widened the same way graph.Normalize widens
// them, so a decoded bag produces the same index keys as the bag that was
// stored.
func (c *Codec) Decode(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty property payload")
	}

	body := data[1:]
	switch data[0] {
	case formatRaw:
	case formatZstd:
		var err error
		body, err = c.dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress properties: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown payload format %d", data[0])
	}

	dec := msgpack.NewDecoder(bytes.NewReader(body))

	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	if props == nil {
		return map[string]any{}, nil
	}
	normalized, err := graph.Normalize(props)
	if err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return map[string]any(normalized), nil
}

// Close releases the compressor's resources
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
