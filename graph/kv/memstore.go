package kv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/google/btree"
)

type memItem struct {
	key   []byte
	value []byte
}

func memLess(a, b memItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemStore is an in-memory Store backed by a copy-on-write B-tree.
//
// Read transactions work on a snapshot clone. Write transactions are
// serialized: a writer holds the store's write lock from Begin until Commit
// or Rollback and publishes its clone on Commit.
type MemStore struct {
	mu     sync.RWMutex // guards tree
	writer sync.Mutex   // held by the active write transaction
	tree   *btree.BTreeG[memItem]
	closed bool
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{tree: btree.NewG[memItem](32, memLess)}
}

// Begin starts a new transaction
func (s *MemStore) Begin(writable bool) (Txn, error) {
	if writable {
		s.writer.Lock()
	}

	s.mu.RLock()
	closed := s.closed
	var snapshot *btree.BTreeG[memItem]
	if !closed {
		snapshot = s.tree.Clone()
	}
	s.mu.RUnlock()

	if closed {
		if writable {
			s.writer.Unlock()
		}
		return nil, errors.New("mem store is closed")
	}
	return &MemTxn{store: s, tree: snapshot, writable: writable}, nil
}

// Close releases the tree; later transactions fail
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tree = nil
	return nil
}

// Len returns the number of committed keys
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// MemTxn implements Txn for MemStore. It also implements Counter, updating
// counters in place instead of through the generic read-modify-write helper.
type MemTxn struct {
	store    *MemStore
	tree     *btree.BTreeG[memItem]
	writable bool
	done     bool
}

func (t *MemTxn) check(write bool) error {
	if t.done {
		return ErrTxnClosed
	}
	if write && !t.writable {
		return ErrReadOnly
	}
	return nil
}

// Has reports whether key exists
func (t *MemTxn) Has(key []byte) (bool, error) {
	if err := t.check(false); err != nil {
		return false, err
	}
	return t.tree.Has(memItem{key: key}), nil
}

// Get returns a copy of the value stored at key
func (t *MemTxn) Get(key []byte) ([]byte, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	item, ok := t.tree.Get(memItem{key: key})
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, item.value...), nil
}

// Set writes key
func (t *MemTxn) Set(key, value []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	t.tree.ReplaceOrInsert(memItem{
		key:   append([]byte(nil), key...),
		value: append([]byte{}, value...),
	})
	return nil
}

// Remove deletes key
func (t *MemTxn) Remove(key []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	t.tree.Delete(memItem{key: key})
	return nil
}

func (t *MemTxn) scan(prefix []byte) []memItem {
	var items []memItem
	t.tree.AscendGreaterOrEqual(memItem{key: prefix}, func(item memItem) bool {
		if !bytes.HasPrefix(item.key, prefix) {
			return false
		}
		items = append(items, item)
		return true
	})
	return items
}

// Iterate calls fn for every key under prefix in key order
func (t *MemTxn) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	if err := t.check(false); err != nil {
		return err
	}
	for _, item := range t.scan(prefix) {
		if err := fn(item.key, item.value); err != nil {
			return err
		}
	}
	return nil
}

// RemovePrefix deletes every key under prefix
func (t *MemTxn) RemovePrefix(prefix []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	for _, item := range t.scan(prefix) {
		t.tree.Delete(item)
	}
	return nil
}

// IncrBy adds delta to the counter at key and returns the new value
func (t *MemTxn) IncrBy(key []byte, delta int64) (uint64, error) {
	if err := t.check(true); err != nil {
		return 0, err
	}
	item, ok := t.tree.Get(memItem{key: key})
	if !ok {
		return 0, ErrMissingKey
	}
	cur, err := decodeCounter(item.value)
	if err != nil {
		return 0, err
	}
	next, err := applyDelta(cur, delta)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	t.tree.ReplaceOrInsert(memItem{key: item.key, value: buf})
	return next, nil
}

// Commit publishes the transaction's tree
func (t *MemTxn) Commit() error {
	if t.done {
		return ErrTxnClosed
	}
	t.done = true
	if !t.writable {
		return nil
	}
	defer t.store.writer.Unlock()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.closed {
		return errors.New("mem store is closed")
	}
	t.store.tree = t.tree
	return nil
}

// Rollback drops the transaction's tree
func (t *MemTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.writable {
		t.store.writer.Unlock()
	}
	return nil
}
