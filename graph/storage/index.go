package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/annotations"
	"github.com/wbrown/janus-graph/graph/codec"
	"github.com/wbrown/janus-graph/graph/kv"
)

// IndexInfo describes one registered secondary index
type IndexInfo struct {
	ID     uint64
	Kind   graph.Kind
	Fields []string // canonical order
}

func (i IndexInfo) String() string {
	return fmt.Sprintf("%s%v#%d", i.Kind, i.Fields, i.ID)
}

// canonicalFields sorts and deduplicates an index's field list
func canonicalFields(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: index needs at least one field", graph.ErrInvalidData)
	}
	out := append([]string(nil), fields...)
	sort.Strings(out)
	n := 0
	for i, f := range out {
		if f == "" {
			return nil, fmt.Errorf("%w: empty field name", graph.ErrInvalidData)
		}
		if i > 0 && f == out[n-1] {
			continue
		}
		out[n] = f
		n++
	}
	return out[:n], nil
}

// lookupIndex finds the index on exactly fields, which must be canonical
func (tx *Tx) lookupIndex(kind graph.Kind, fields []string) (IndexInfo, bool, error) {
	b, err := tx.txn.Get(registryKey(kind, fields))
	if errors.Is(err, kv.ErrNotFound) {
		return IndexInfo{}, false, nil
	}
	if err != nil {
		return IndexInfo{}, false, err
	}
	id, err := decodeIndexID(b)
	if err != nil {
		return IndexInfo{}, false, err
	}
	return IndexInfo{ID: id, Kind: kind, Fields: fields}, true, nil
}

// Indexes lists the indexes registered on kind
func (tx *Tx) Indexes(kind graph.Kind) ([]IndexInfo, error) {
	var out []IndexInfo
	err := tx.txn.Iterate(registryPrefix(kind), func(key, value []byte) error {
		k, fields, err := decodeRegistryKey(key)
		if err != nil {
			return err
		}
		id, err := decodeIndexID(value)
		if err != nil {
			return err
		}
		out = append(out, IndexInfo{ID: id, Kind: k, Fields: fields})
		return nil
	})
	return out, err
}

// postings returns the ids filed under one value tuple
func (tx *Tx) postings(index IndexInfo, values []any) ([]graph.ID, error) {
	tuple, err := codec.EncodeTuple(values)
	if err != nil {
		return nil, err
	}
	ids, err := kv.GetList(tx.txn, postingsKey(index.ID, tuple))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	return ids, err
}

func (tx *Tx) indexKeyFor(index IndexInfo, data graph.Props) ([]byte, error) {
	tuple, err := codec.EncodeTuple(graph.Project(data, index.Fields))
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", index, err)
	}
	return postingsKey(index.ID, tuple), nil
}

func (tx *Tx) addToIndex(index IndexInfo, id graph.ID, data graph.Props) error {
	key, err := tx.indexKeyFor(index, data)
	if err != nil {
		return err
	}
	return kv.ListAppend(tx.txn, key, id)
}

// removeFromIndex drops id from its postings list, deleting the list once empty
func (tx *Tx) removeFromIndex(index IndexInfo, id graph.ID, data graph.Props) error {
	key, err := tx.indexKeyFor(index, data)
	if err != nil {
		return err
	}
	if _, err := kv.ListRemoveOne(tx.txn, key, id); err != nil {
		return err
	}
	n, err := kv.ListCount(tx.txn, key)
	if err != nil || n > 0 {
		return err
	}
	return tx.txn.Remove(key)
}

// addToAllIndexes files ref under every index on its kind
func (tx *Tx) addToAllIndexes(ref graph.Ref, data graph.Props) error {
	indexes, err := tx.Indexes(ref.Kind)
	if err != nil {
		return err
	}
	for _, index := range indexes {
		if err := tx.addToIndex(index, ref.ID, data); err != nil {
			return err
		}
	}
	return nil
}

// removeFromAllIndexes unfiles ref from every index on its kind using the
// data it was filed under
func (tx *Tx) removeFromAllIndexes(ref graph.Ref, data graph.Props) error {
	indexes, err := tx.Indexes(ref.Kind)
	if err != nil {
		return err
	}
	for _, index := range indexes {
		if err := tx.removeFromIndex(index, ref.ID, data); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex registers an exact-match index on kind over fields and files
// every existing entity of kind under it
func (tx *Tx) CreateIndex(kind graph.Kind, fields ...string) (IndexInfo, error) {
	start := time.Now()
	fail := func(err error) (IndexInfo, error) {
		return IndexInfo{}, &graph.IndexError{Op: "create", Kind: kind, Fields: fields, Err: err}
	}

	canon, err := canonicalFields(fields)
	if err != nil {
		return fail(err)
	}
	if _, exists, err := tx.lookupIndex(kind, canon); err != nil {
		return fail(err)
	} else if exists {
		return fail(graph.ErrIndexAlreadyExists)
	}

	id, err := kv.NewID(tx.txn, rootIndexSeq)
	if err != nil {
		return fail(err)
	}
	if err := kv.Incr(tx.txn, rootIndexCount); err != nil {
		return fail(err)
	}
	info := IndexInfo{ID: id, Kind: kind, Fields: canon}
	if err := tx.txn.Set(registryKey(kind, canon), u64(id)); err != nil {
		return fail(err)
	}

	n, err := tx.backfill(info)
	if err != nil {
		return fail(err)
	}

	tx.db.log.WithFields(logrus.Fields{
		"index":  info.ID,
		"kind":   kind,
		"fields": canon,
		"count":  n,
	}).Debug("index created")
	tx.db.annotations.AddTiming(annotations.IndexCreated, start, map[string]interface{}{
		"index":  info.ID,
		"kind":   kind,
		"fields": canon,
	})
	return info, nil
}

// backfill files every existing entity of the index's kind
func (tx *Tx) backfill(info IndexInfo) (int, error) {
	start := time.Now()
	ids, err := tx.allIDs(info.Kind)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		data, err := tx.Data(graph.Ref{Kind: info.Kind, ID: id})
		if err != nil {
			return 0, err
		}
		if err := tx.addToIndex(info, id, data); err != nil {
			return 0, err
		}
	}
	tx.db.annotations.AddTiming(annotations.IndexBackfilled, start, map[string]interface{}{
		"index": info.ID,
		"count": len(ids),
	})
	return len(ids), nil
}

// DropIndex deletes the index on kind over fields and all its postings
func (tx *Tx) DropIndex(kind graph.Kind, fields ...string) error {
	start := time.Now()
	fail := func(err error) error {
		return &graph.IndexError{Op: "drop", Kind: kind, Fields: fields, Err: err}
	}

	canon, err := canonicalFields(fields)
	if err != nil {
		return fail(err)
	}
	info, exists, err := tx.lookupIndex(kind, canon)
	if err != nil {
		return fail(err)
	}
	if !exists {
		return fail(fmt.Errorf("no index on %s%v", kind, canon))
	}

	if err := tx.txn.RemovePrefix(postingsPrefix(info.ID)); err != nil {
		return fail(err)
	}
	if err := kv.Decr(tx.txn, rootIndexCount); err != nil {
		return fail(err)
	}
	if err := tx.txn.Remove(registryKey(kind, canon)); err != nil {
		return fail(err)
	}

	tx.db.log.WithFields(logrus.Fields{"index": info.ID, "kind": kind, "fields": canon}).Debug("index dropped")
	tx.db.annotations.AddTiming(annotations.IndexDropped, start, map[string]interface{}{
		"index":  info.ID,
		"kind":   kind,
		"fields": canon,
	})
	return nil
}

// CreateIndex registers an index in its own transaction
func (d *Database) CreateIndex(kind graph.Kind, fields ...string) (IndexInfo, error) {
	var info IndexInfo
	err := d.update("create-index", graph.Ref{}, func(tx *Tx) error {
		var err error
		info, err = tx.CreateIndex(kind, fields...)
		return err
	})
	return info, err
}

// DropIndex removes an index in its own transaction
func (d *Database) DropIndex(kind graph.Kind, fields ...string) error {
	return d.update("drop-index", graph.Ref{}, func(tx *Tx) error {
		return tx.DropIndex(kind, fields...)
	})
}

// Indexes lists the indexes registered on kind
func (d *Database) Indexes(kind graph.Kind) ([]IndexInfo, error) {
	var out []IndexInfo
	err := d.View(func(tx *Tx) error {
		var err error
		out, err = tx.Indexes(kind)
		return err
	})
	return out, err
}
