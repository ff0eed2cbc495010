package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/codec"
)

// Key layout. Each key family has a 1-byte prefix to separate namespaces;
// ids are fixed-width big-endian so every per-entity prefix is unambiguous.
//
//	data:     0x01 kind id                 → property bag
//	list:     0x02 kind id slot            → packed adjacency ids
//	count:    0x03 kind id slot            → adjacency counter
//	marker:   0x04 kind id slot candidate  → 1
//	bucket:   0x05 kind bucket             → packed ids
//	root:     0x06 name                    → counter / setting
//	registry: 0x07 kind fields             → index id
//	postings: 0x08 index values            → packed ids
const (
	prefixData     byte = 0x01
	prefixList     byte = 0x02
	prefixCount    byte = 0x03
	prefixMarker   byte = 0x04
	prefixBucket   byte = 0x05
	prefixRoot     byte = 0x06
	prefixRegistry byte = 0x07
	prefixPostings byte = 0x08
)

// Root keys
var (
	rootVertexCounter = rootKey("vertex.next")
	rootEdgeCounter   = rootKey("edge.next")
	rootIndexSeq      = rootKey("index.next")
	rootIndexCount    = rootKey("index.count")
	rootBucketSize    = rootKey("bucket.size")
)

func rootKey(name string) []byte {
	return append([]byte{prefixRoot}, name...)
}

// idCounterKey returns the id allocation counter for a kind
func idCounterKey(k graph.Kind) []byte {
	if k == graph.Edge {
		return rootEdgeCounter
	}
	return rootVertexCounter
}

// concatBytes efficiently concatenates multiple byte slices
func concatBytes(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func slotByte(s graph.Slot) byte {
	return byte(s.Target)<<4 | byte(s.Dir)
}

func entityPrefix(prefix byte, ref graph.Ref) []byte {
	return concatBytes([]byte{prefix, byte(ref.Kind)}, u64(ref.ID))
}

func dataKey(ref graph.Ref) []byte {
	return entityPrefix(prefixData, ref)
}

func listKey(ref graph.Ref, s graph.Slot) []byte {
	return append(entityPrefix(prefixList, ref), slotByte(s))
}

func countKey(ref graph.Ref, s graph.Slot) []byte {
	return append(entityPrefix(prefixCount, ref), slotByte(s))
}

func markerKey(ref graph.Ref, s graph.Slot, candidate graph.ID) []byte {
	return concatBytes(entityPrefix(prefixMarker, ref), []byte{slotByte(s)}, u64(candidate))
}

// markerPrefix covers every membership marker owned by ref
func markerPrefix(ref graph.Ref) []byte {
	return entityPrefix(prefixMarker, ref)
}

func bucketPrefix(k graph.Kind) []byte {
	return []byte{prefixBucket, byte(k)}
}

func bucketKey(k graph.Kind, bucket uint64) []byte {
	return concatBytes(bucketPrefix(k), u64(bucket))
}

func registryPrefix(k graph.Kind) []byte {
	return []byte{prefixRegistry, byte(k)}
}

func registryKey(k graph.Kind, fields []string) []byte {
	return append(registryPrefix(k), codec.EncodeFields(fields)...)
}

// decodeRegistryKey extracts the field list from a registry key
func decodeRegistryKey(key []byte) (graph.Kind, []string, error) {
	if len(key) < 2 || key[0] != prefixRegistry {
		return 0, nil, fmt.Errorf("not a registry key: %x", key)
	}
	fields, err := codec.DecodeFields(key[2:])
	return graph.Kind(key[1]), fields, err
}

func postingsPrefix(index uint64) []byte {
	return append([]byte{prefixPostings}, u64(index)...)
}

func postingsKey(index uint64, tuple []byte) []byte {
	return append(postingsPrefix(index), tuple...)
}
