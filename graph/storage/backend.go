package storage

import (
	"fmt"

	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/traversal"
)

var (
	_ traversal.Backend = (*Database)(nil)
	_ traversal.Reader  = (*Tx)(nil)
)

// Read opens a read snapshot for a traversal
func (d *Database) Read() (traversal.Reader, error) {
	txn, err := d.store.Begin(false)
	if err != nil {
		return nil, err
	}
	return &Tx{db: d, txn: txn}, nil
}

// Scan returns every id of kind matching filter
func (tx *Tx) Scan(kind graph.Kind, filter graph.Filter) ([]graph.ID, error) {
	return tx.Query(kind, filter)
}

// Close ends a read snapshot opened by Read
func (tx *Tx) Close() error {
	return tx.txn.Rollback()
}

// RemoveEntity deletes a vertex or edge in its own transaction
func (d *Database) RemoveEntity(ref graph.Ref) error {
	switch ref.Kind {
	case graph.Vertex:
		return d.RemoveNode(ref.ID)
	case graph.Edge:
		return d.RemoveEdge(ref.ID)
	}
	return fmt.Errorf("%w: %s", graph.ErrInvalidDataType, ref)
}

// UpdateEntity merges changes into a vertex or edge
func (d *Database) UpdateEntity(ref graph.Ref, changes graph.Props) error {
	return d.UpdateData(ref, changes)
}
