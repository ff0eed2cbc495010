// Package storage implements the property-graph engine: entity handles with
// eagerly denormalized adjacency, secondary indexes with an index-vs-scan
// decision, and transactional create/update/delete over a kv.Store.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/annotations"
	"github.com/wbrown/janus-graph/graph/codec"
	"github.com/wbrown/janus-graph/graph/kv"
	"github.com/wbrown/janus-graph/graph/traversal"
)

// Database provides the main API for reading and writing the graph
type Database struct {
	store       kv.Store
	codec       *codec.Codec
	opts        Options
	bucketSize  uint64
	log         logrus.FieldLogger
	annotations *annotations.Collector
}

// NewDatabase opens (or creates) a database in a BadgerDB directory
func NewDatabase(path string, opts Options) (*Database, error) {
	store, err := kv.NewBadgerStore(kv.BadgerOptions{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	db, err := Open(store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	return db, nil
}

// NewMemoryDatabase creates a database on an in-memory store
func NewMemoryDatabase(opts Options) (*Database, error) {
	return Open(kv.NewMemStore(), opts)
}

// Open layers a database over store, bootstrapping the root counters on
// first use. The database takes ownership of the store.
func Open(store kv.Store, opts Options) (*Database, error) {
	opts = opts.withDefaults()

	c, err := codec.NewCodec(opts.CompressThreshold)
	if err != nil {
		return nil, err
	}

	d := &Database{
		store:       store,
		codec:       c,
		opts:        opts,
		bucketSize:  opts.BucketSize,
		log:         opts.Logger,
		annotations: annotations.NewCollector(opts.Handler),
	}

	if err := d.prepare(); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %v", graph.ErrDataPreparationFailed, err)
	}
	return d, nil
}

// prepare creates any missing root counter and loads the persisted bucket size
func (d *Database) prepare() error {
	return kv.Update(d.store, func(txn kv.Txn) error {
		for _, key := range [][]byte{rootVertexCounter, rootEdgeCounter, rootIndexSeq, rootIndexCount} {
			ok, err := txn.Has(key)
			if err != nil {
				return err
			}
			if !ok {
				if err := kv.InitCounter(txn, key, 0); err != nil {
					return err
				}
			}
		}

		stored, err := kv.GetCounter(txn, rootBucketSize)
		switch {
		case errors.Is(err, kv.ErrMissingKey):
			return kv.InitCounter(txn, rootBucketSize, d.bucketSize)
		case err != nil:
			return err
		case stored != d.bucketSize:
			d.log.WithFields(logrus.Fields{
				"configured": d.bucketSize,
				"stored":     stored,
			}).Warn("bucket size is fixed at creation; using stored value")
			d.bucketSize = stored
		}
		return nil
	})
}

// Close closes the database and its store
func (d *Database) Close() error {
	d.codec.Close()
	return d.store.Close()
}

// Store returns the underlying store for direct access (debugging/testing)
func (d *Database) Store() kv.Store {
	return d.store
}

// Tx is a unit of work over one store transaction. Operations on the same
// Tx commit or roll back together; pass it down to compose mutations.
type Tx struct {
	db       *Database
	txn      kv.Txn
	writable bool
}

// Update runs fn in a single read-write transaction. Any error rolls the
// whole transaction back and is returned as a *graph.DataError.
func (d *Database) Update(fn func(tx *Tx) error) error {
	return d.update("update", graph.Ref{}, fn)
}

func (d *Database) update(op string, ref graph.Ref, fn func(tx *Tx) error) error {
	start := time.Now()

	txn, err := d.store.Begin(true)
	if err != nil {
		return &graph.DataError{Op: op, Ref: ref, Err: err}
	}
	tx := &Tx{db: d, txn: txn, writable: true}

	if err := fn(tx); err != nil {
		txn.Rollback()
		d.log.WithFields(logrus.Fields{"op": op}).WithError(err).Warn("transaction rolled back")
		d.annotations.AddTiming(annotations.TxRolledBack, start, map[string]interface{}{
			"op":    op,
			"error": err.Error(),
		})
		return asDataError(op, ref, err)
	}

	if err := txn.Commit(); err != nil {
		d.log.WithFields(logrus.Fields{"op": op}).WithError(err).Warn("commit failed")
		return asDataError(op, ref, err)
	}
	d.annotations.AddTiming(annotations.TxCommitted, start, map[string]interface{}{"op": op})
	return nil
}

// View runs fn in a read-only transaction. Errors propagate unchanged.
func (d *Database) View(fn func(tx *Tx) error) error {
	txn, err := d.store.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return fn(&Tx{db: d, txn: txn})
}

// asDataError wraps err unless it already is a DataError or IndexError
func asDataError(op string, ref graph.Ref, err error) error {
	var de *graph.DataError
	var ie *graph.IndexError
	if errors.As(err, &de) || errors.As(err, &ie) {
		return err
	}
	return &graph.DataError{Op: op, Ref: ref, Err: err}
}

// Stats describes the database's counters
type Stats struct {
	NextVertexID uint64
	NextEdgeID   uint64
	Indexes      uint64
	BucketSize   uint64
}

// Stats returns database statistics
func (d *Database) Stats() (Stats, error) {
	s := Stats{BucketSize: d.bucketSize}
	err := d.View(func(tx *Tx) error {
		var err error
		if s.NextVertexID, err = kv.GetCounter(tx.txn, rootVertexCounter); err != nil {
			return err
		}
		if s.NextEdgeID, err = kv.GetCounter(tx.txn, rootEdgeCounter); err != nil {
			return err
		}
		s.Indexes, err = kv.GetCounter(tx.txn, rootIndexCount)
		return err
	})
	return s, err
}

// traversalConfig returns the iterator configuration for this database
func (d *Database) traversalConfig() traversal.Config {
	return traversal.Config{
		CombinedHopFilter: d.opts.CombinedHopFilter,
		DisableCache:      d.opts.DisableLookupCache,
		Annotations:       d.annotations,
	}
}

// V starts a traversal over every vertex matching filter
func (d *Database) V(filter graph.Filter) *traversal.Iterator {
	return traversal.All(d, d.traversalConfig(), graph.Vertex, filter)
}

// E starts a traversal over every edge matching filter
func (d *Database) E(filter graph.Filter) *traversal.Iterator {
	return traversal.All(d, d.traversalConfig(), graph.Edge, filter)
}

// From starts a traversal at the given entities
func (d *Database) From(kind graph.Kind, ids ...graph.ID) *traversal.Iterator {
	return traversal.From(d, d.traversalConfig(), kind, ids...)
}

func decodeIndexID(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("index id must be 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
