package kv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Counters are stored as 8-byte big-endian unsigned integers.

func encodeCounter(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeCounter(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("counter value must be 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// InitCounter sets the counter at key to v
func InitCounter(txn Txn, key []byte, v uint64) error {
	return txn.Set(key, encodeCounter(v))
}

// GetCounter reads a counter; a missing counter yields ErrMissingKey
func GetCounter(txn Txn, key []byte) (uint64, error) {
	b, err := txn.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("%w: counter %x", ErrMissingKey, key)
	}
	if err != nil {
		return 0, err
	}
	return decodeCounter(b)
}

// IncrBy adds delta to a counter and returns the new value
func IncrBy(txn Txn, key []byte, delta int64) (uint64, error) {
	if c, ok := txn.(Counter); ok {
		return c.IncrBy(key, delta)
	}

	cur, err := GetCounter(txn, key)
	if err != nil {
		return 0, err
	}
	next, err := applyDelta(cur, delta)
	if err != nil {
		return 0, err
	}
	if err := txn.Set(key, encodeCounter(next)); err != nil {
		return 0, err
	}
	return next, nil
}

func applyDelta(cur uint64, delta int64) (uint64, error) {
	if delta < 0 {
		if uint64(-delta) > cur {
			return 0, ErrCounterUnderflow
		}
		return cur - uint64(-delta), nil
	}
	if uint64(delta) > math.MaxUint64-cur {
		return 0, ErrCounterOverflow
	}
	return cur + uint64(delta), nil
}

// Incr adds one to a counter
func Incr(txn Txn, key []byte) error {
	_, err := IncrBy(txn, key, 1)
	return err
}

// Decr subtracts one from a counter
func Decr(txn Txn, key []byte) error {
	_, err := IncrBy(txn, key, -1)
	return err
}

// NewID increments the counter at key and returns its previous value
func NewID(txn Txn, key []byte) (uint64, error) {
	return Reserve(txn, key, 1)
}

// Reserve claims n consecutive values from the counter at key with a single
// increment and returns the first one
func Reserve(txn Txn, key []byte, n int) (uint64, error) {
	next, err := IncrBy(txn, key, int64(n))
	if err != nil {
		return 0, err
	}
	return next - uint64(n), nil
}

// Id lists are stored packed: 8 bytes per id, big-endian.

// EncodeIDs packs an id list
func EncodeIDs(ids []uint64) []byte {
	buf := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint64(buf[8*i:], id)
	}
	return buf
}

// DecodeIDs unpacks an id list
func DecodeIDs(b []byte) ([]uint64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("id list length %d is not a multiple of 8", len(b))
	}
	ids := make([]uint64, len(b)/8)
	for i := range ids {
		ids[i] = binary.BigEndian.Uint64(b[8*i:])
	}
	return ids, nil
}

// InitList creates an empty list at key
func InitList(txn Txn, key []byte) error {
	return txn.Set(key, []byte{})
}

// GetList returns the list at key; a missing list yields ErrNotFound
func GetList(txn Txn, key []byte) ([]uint64, error) {
	b, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return DecodeIDs(b)
}

// BulkGetLists fetches several lists; missing lists come back nil
func BulkGetLists(txn Txn, keys [][]byte) ([][]uint64, error) {
	out := make([][]uint64, len(keys))
	for i, key := range keys {
		ids, err := GetList(txn, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = ids
	}
	return out, nil
}

// ListCount returns the length of the list at key, zero if missing
func ListCount(txn Txn, key []byte) (int, error) {
	b, err := txn.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(b) / 8, nil
}

// ListAppend appends id to the list at key, creating the list if needed
func ListAppend(txn Txn, key []byte, id uint64) error {
	if a, ok := txn.(ListAppender); ok {
		return a.ListAppend(key, id)
	}

	b, err := txn.Get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	buf := make([]byte, len(b)+8)
	copy(buf, b)
	binary.BigEndian.PutUint64(buf[len(b):], id)
	return txn.Set(key, buf)
}

// ListRemoveOne removes the first occurrence of id from the list at key and
// reports whether anything was removed
func ListRemoveOne(txn Txn, key []byte, id uint64) (bool, error) {
	ids, err := GetList(txn, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for i, cur := range ids {
		if cur == id {
			ids = append(ids[:i], ids[i+1:]...)
			return true, txn.Set(key, EncodeIDs(ids))
		}
	}
	return false, nil
}

// ListContains reports whether id occurs in the list at key
func ListContains(txn Txn, key []byte, id uint64) (bool, error) {
	ids, err := GetList(txn, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, cur := range ids {
		if cur == id {
			return true, nil
		}
	}
	return false, nil
}
