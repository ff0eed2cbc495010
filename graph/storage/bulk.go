package storage

import (
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/kv"
)

// EdgeSpec describes one edge of a bulk insert
type EdgeSpec struct {
	Source graph.ID
	Target graph.ID
	Data   graph.Props
}

// BulkAddNodes creates len(props) vertices with consecutive ids reserved by
// a single counter increment. Every payload is validated before any write.
func (tx *Tx) BulkAddNodes(props []graph.Props) ([]graph.ID, error) {
	data := make([]graph.Props, len(props))
	for i, p := range props {
		norm, err := graph.Normalize(p)
		if err != nil {
			return nil, fail("bulk-add-nodes", graph.Ref{}, err)
		}
		data[i] = norm
	}
	if len(data) == 0 {
		return nil, nil
	}

	first, err := kv.Reserve(tx.txn, rootVertexCounter, len(data))
	if err != nil {
		return nil, fail("bulk-add-nodes", graph.Ref{}, err)
	}
	ids := make([]graph.ID, len(data))
	for i, d := range data {
		ids[i] = first + uint64(i)
		if err := tx.insertNode(ids[i], d); err != nil {
			return nil, fail("bulk-add-nodes", graph.V(ids[i]), err)
		}
	}
	return ids, nil
}

// BulkAddEdges creates the given edges with consecutive ids reserved by a
// single counter increment
func (tx *Tx) BulkAddEdges(specs []EdgeSpec) ([]graph.ID, error) {
	data := make([]graph.Props, len(specs))
	for i, s := range specs {
		norm, err := graph.Normalize(s.Data)
		if err != nil {
			return nil, fail("bulk-add-edges", graph.Ref{}, err)
		}
		data[i] = norm
	}
	checked := make(map[graph.ID]bool)
	for _, s := range specs {
		for _, v := range []graph.ID{s.Source, s.Target} {
			if checked[v] {
				continue
			}
			if err := tx.mustExist(graph.V(v)); err != nil {
				return nil, fail("bulk-add-edges", graph.Ref{}, err)
			}
			checked[v] = true
		}
	}
	if len(specs) == 0 {
		return nil, nil
	}

	first, err := kv.Reserve(tx.txn, rootEdgeCounter, len(specs))
	if err != nil {
		return nil, fail("bulk-add-edges", graph.Ref{}, err)
	}
	ids := make([]graph.ID, len(specs))
	for i, s := range specs {
		ids[i] = first + uint64(i)
		if err := tx.insertEdge(ids[i], s.Source, s.Target, data[i]); err != nil {
			return nil, fail("bulk-add-edges", graph.E(ids[i]), err)
		}
	}
	return ids, nil
}

// BulkAddNodes creates vertices in one transaction
func (d *Database) BulkAddNodes(props []graph.Props) ([]*Node, error) {
	var ids []graph.ID
	err := d.update("bulk-add-nodes", graph.Ref{}, func(tx *Tx) error {
		var err error
		ids, err = tx.BulkAddNodes(props)
		return err
	})
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = d.node(id)
	}
	return nodes, nil
}

// BulkAddEdges creates edges in one transaction
func (d *Database) BulkAddEdges(specs []EdgeSpec) ([]*Edge, error) {
	var ids []graph.ID
	err := d.update("bulk-add-edges", graph.Ref{}, func(tx *Tx) error {
		var err error
		ids, err = tx.BulkAddEdges(specs)
		return err
	})
	if err != nil {
		return nil, err
	}
	edges := make([]*Edge, len(ids))
	for i, id := range ids {
		edges[i] = d.edge(id)
	}
	return edges, nil
}
