package kv

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerOptions configures a BadgerStore
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory runs BadgerDB without touching disk. Useful for testing.
	InMemory bool

	// SyncWrites forces an fsync on every commit
	SyncWrites bool
}

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerDB-backed store
func NewBadgerStore(o BadgerOptions) (*BadgerStore, error) {
	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if o.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		opts = badger.DefaultOptions(o.Path)
	}
	opts.Logger = nil // Disable BadgerDB logs
	opts.SyncWrites = o.SyncWrites

	// Small values live in the LSM tree; adjacency lists and counters are tiny.
	// In-memory mode has no value log, so values must stay under the default
	// threshold.
	if !o.InMemory {
		opts.ValueThreshold = 1 << 10
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Begin starts a new transaction
func (s *BadgerStore) Begin(writable bool) (Txn, error) {
	if s.db.IsClosed() {
		return nil, fmt.Errorf("badger store is closed")
	}
	return &BadgerTxn{
		txn:      s.db.NewTransaction(writable),
		writable: writable,
	}, nil
}

// Close closes the store
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunGC reclaims value log space; call periodically on long-lived stores
func (s *BadgerStore) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// BadgerTxn implements Txn for BadgerDB
type BadgerTxn struct {
	txn      *badger.Txn
	writable bool
	done     bool
}

func (t *BadgerTxn) check(write bool) error {
	if t.done {
		return ErrTxnClosed
	}
	if write && !t.writable {
		return ErrReadOnly
	}
	return nil
}

// Has reports whether key exists
func (t *BadgerTxn) Has(key []byte) (bool, error) {
	if err := t.check(false); err != nil {
		return false, err
	}
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns a copy of the value stored at key
func (t *BadgerTxn) Get(key []byte) ([]byte, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set writes key
func (t *BadgerTxn) Set(key, value []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	return t.txn.Set(key, value)
}

// Remove deletes key; deleting an absent key is not an error
func (t *BadgerTxn) Remove(key []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	if err := t.txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return nil
}

type kvPair struct {
	key, value []byte
}

// collect materializes a prefix range. Badger allows only one live iterator
// per read-write transaction, so callbacks never run while it is open.
func (t *BadgerTxn) collect(prefix []byte, values bool) ([]kvPair, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = values

	it := t.txn.NewIterator(opts)
	defer it.Close()

	var pairs []kvPair
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		p := kvPair{key: item.KeyCopy(nil)}
		if values {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return nil, err
			}
			p.value = v
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// Iterate calls fn for every key under prefix in key order
func (t *BadgerTxn) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	if err := t.check(false); err != nil {
		return err
	}
	pairs, err := t.collect(prefix, true)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// RemovePrefix deletes every key under prefix
func (t *BadgerTxn) RemovePrefix(prefix []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	pairs, err := t.collect(prefix, false)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := t.txn.Delete(p.key); err != nil {
			return fmt.Errorf("failed to delete %x: %w", p.key, err)
		}
	}
	return nil
}

// Commit commits the transaction
func (t *BadgerTxn) Commit() error {
	if t.done {
		return ErrTxnClosed
	}
	t.done = true
	if !t.writable {
		t.txn.Discard()
		return nil
	}
	return t.txn.Commit()
}

// Rollback discards the transaction. Rolling back a finished transaction is a no-op.
func (t *BadgerTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Discard()
	return nil
}
