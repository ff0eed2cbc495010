// Package kv defines the transactional ordered key-value contract the graph
// engine is layered on, the list and counter helpers built over it, and two
// backends: BadgerDB and an in-memory B-tree.
package kv

import (
	"errors"
)

var (
	// ErrNotFound is returned by Txn.Get for an absent key
	ErrNotFound = errors.New("key not found")

	// ErrMissingKey is returned when a counter that must exist is absent
	ErrMissingKey = errors.New("missing key")

	// ErrCounterUnderflow is returned when decrementing a zero counter
	ErrCounterUnderflow = errors.New("counter underflow")

	// ErrCounterOverflow is returned when an increment would wrap a counter
	ErrCounterOverflow = errors.New("counter overflow")

	// ErrTxnClosed is returned when using a committed or rolled back transaction
	ErrTxnClosed = errors.New("transaction closed")

	// ErrReadOnly is returned when writing through a read-only transaction
	ErrReadOnly = errors.New("transaction is read-only")
)

// Store is the interface for a transactional ordered key-value store.
// Concurrency and isolation are entirely the backend's business.
type Store interface {
	// Begin opens a transaction. Read-only transactions see a consistent
	// snapshot and must still be closed with Commit or Rollback.
	Begin(writable bool) (Txn, error)

	// Lifecycle
	Close() error
}

// Txn represents a storage transaction
type Txn interface {
	// Read operations
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)

	// Iterate calls fn for every key with the given prefix in ascending
	// order. The key and value are only valid during the call.
	Iterate(prefix []byte, fn func(key, value []byte) error) error

	// Write operations
	Set(key, value []byte) error
	Remove(key []byte) error
	RemovePrefix(prefix []byte) error

	Commit() error
	Rollback() error
}

// Counter is implemented by transactions that can increment a counter
// natively. The helpers in this package use it in place of read-modify-write.
type Counter interface {
	// IncrBy adds delta to the counter at key and returns the new value.
	// A missing key yields ErrMissingKey.
	IncrBy(key []byte, delta int64) (uint64, error)
}

// ListAppender is implemented by transactions that can append to an id list
// without rewriting it.
type ListAppender interface {
	ListAppend(key []byte, id uint64) error
}

// Update runs fn in a writable transaction, committing on success and
// rolling back on any error
func Update(s Store, fn func(Txn) error) error {
	txn, err := s.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// View runs fn in a read-only transaction
func View(s Store, fn func(Txn) error) error {
	txn, err := s.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return fn(txn)
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or nil if there is none
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
