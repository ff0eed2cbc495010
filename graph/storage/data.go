package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/kv"
)

func notFound(ref graph.Ref) error {
	return fmt.Errorf("%w: %s", graph.ErrNotFound, ref)
}

func missingKey(ref graph.Ref, slot graph.Slot) error {
	return fmt.Errorf("%w: %s.%s", graph.ErrMissingKey, ref, slot)
}

// Data returns an entity's property bag
func (tx *Tx) Data(ref graph.Ref) (graph.Props, error) {
	b, err := tx.txn.Get(dataKey(ref))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, notFound(ref)
	}
	if err != nil {
		return nil, err
	}
	m, err := tx.db.codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return graph.Props(m), nil
}

// Exists reports whether the entity is stored
func (tx *Tx) Exists(ref graph.Ref) (bool, error) {
	return tx.txn.Has(dataKey(ref))
}

func (tx *Tx) putData(ref graph.Ref, data graph.Props) error {
	b, err := tx.db.codec.Encode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}
	return tx.txn.Set(dataKey(ref), b)
}

// mustExist fails with ErrNotFound when ref is absent
func (tx *Tx) mustExist(ref graph.Ref) error {
	ok, err := tx.Exists(ref)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(ref)
	}
	return nil
}

// rawList reads an adjacency list, distinguishing a missing entity
func (tx *Tx) rawList(ref graph.Ref, slot graph.Slot) ([]graph.ID, error) {
	ids, err := kv.GetList(tx.txn, listKey(ref, slot))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, notFound(ref)
	}
	return ids, err
}

// adjacencyCount reads the counter kept alongside a list
func (tx *Tx) adjacencyCount(ref graph.Ref, slot graph.Slot) (uint64, error) {
	n, err := kv.GetCounter(tx.txn, countKey(ref, slot))
	if errors.Is(err, kv.ErrMissingKey) {
		return 0, notFound(ref)
	}
	return n, err
}

func (tx *Tx) bucketOf(ref graph.Ref) []byte {
	return bucketKey(ref.Kind, ref.ID/tx.db.bucketSize)
}

// allIDs enumerates every live id of kind bucket by bucket. Only buckets
// that exist are read, so sparse explicit ids do not cost one read per
// possible bucket below the counter.
func (tx *Tx) allIDs(kind graph.Kind) ([]graph.ID, error) {
	next, err := kv.GetCounter(tx.txn, idCounterKey(kind))
	if err != nil {
		return nil, err
	}
	size := tx.db.bucketSize
	n := next / size
	if next%size != 0 {
		n++
	}

	prefix := bucketPrefix(kind)
	var ids []graph.ID
	err = tx.txn.Iterate(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+8 {
			return fmt.Errorf("%w: malformed bucket key %x", graph.ErrMissingKey, key)
		}
		if binary.BigEndian.Uint64(key[len(prefix):]) >= n {
			return nil
		}
		list, err := kv.DecodeIDs(value)
		if err != nil {
			return err
		}
		ids = append(ids, list...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AllIDs returns every live id of kind
func (tx *Tx) AllIDs(kind graph.Kind) ([]graph.ID, error) {
	return tx.allIDs(kind)
}

// allocate claims an id for a new entity. A caller-chosen id must be free;
// one at or past the counter moves the counter beyond it.
func (tx *Tx) allocate(kind graph.Kind, want *graph.ID) (graph.ID, error) {
	key := idCounterKey(kind)
	if want == nil {
		return kv.NewID(tx.txn, key)
	}

	id := *want
	ref := graph.Ref{Kind: kind, ID: id}
	if id == math.MaxUint64 {
		return 0, fmt.Errorf("%w: %s is out of range", graph.ErrInvalidData, ref)
	}
	exists, err := tx.Exists(ref)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", graph.ErrEntityExists, ref)
	}

	next, err := kv.GetCounter(tx.txn, key)
	if err != nil {
		return 0, err
	}
	if id >= next {
		if err := kv.InitCounter(tx.txn, key, id+1); err != nil {
			return 0, err
		}
	}
	return id, nil
}
