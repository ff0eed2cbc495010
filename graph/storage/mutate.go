package storage

import (
	"fmt"

	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/kv"
)

// fail wraps the cause of a failed Tx operation
func fail(op string, ref graph.Ref, err error) error {
	return asDataError(op, ref, err)
}

// AddNode creates a vertex and returns its id
func (tx *Tx) AddNode(props graph.Props) (graph.ID, error) {
	return tx.addNode(nil, props)
}

// AddNodeWithID creates a vertex with a caller-chosen id
func (tx *Tx) AddNodeWithID(id graph.ID, props graph.Props) error {
	_, err := tx.addNode(&id, props)
	return err
}

func (tx *Tx) addNode(want *graph.ID, props graph.Props) (graph.ID, error) {
	data, err := graph.Normalize(props)
	if err != nil {
		return 0, fail("add-node", graph.Ref{}, err)
	}
	id, err := tx.allocate(graph.Vertex, want)
	if err != nil {
		return 0, fail("add-node", graph.Ref{}, err)
	}
	if err := tx.insertNode(id, data); err != nil {
		return 0, fail("add-node", graph.V(id), err)
	}
	return id, nil
}

// insertNode writes a vertex under an already allocated id
func (tx *Tx) insertNode(id graph.ID, data graph.Props) error {
	ref := graph.V(id)
	if err := tx.putData(ref, data); err != nil {
		return err
	}
	if err := tx.initDenorm(ref); err != nil {
		return err
	}
	if err := kv.ListAppend(tx.txn, tx.bucketOf(ref), id); err != nil {
		return err
	}
	return tx.addToAllIndexes(ref, data)
}

// AddEdge creates an edge from source to target and returns its id.
// Both endpoints must be existing vertices.
func (tx *Tx) AddEdge(source, target graph.Ref, props graph.Props) (graph.ID, error) {
	return tx.addEdge(nil, source, target, props)
}

// AddEdgeWithID creates an edge with a caller-chosen id
func (tx *Tx) AddEdgeWithID(id graph.ID, source, target graph.Ref, props graph.Props) error {
	_, err := tx.addEdge(&id, source, target, props)
	return err
}

func (tx *Tx) addEdge(want *graph.ID, source, target graph.Ref, props graph.Props) (graph.ID, error) {
	data, err := graph.Normalize(props)
	if err != nil {
		return 0, fail("add-edge", graph.Ref{}, err)
	}
	if err := tx.checkEndpoints(source, target); err != nil {
		return 0, fail("add-edge", graph.Ref{}, err)
	}
	id, err := tx.allocate(graph.Edge, want)
	if err != nil {
		return 0, fail("add-edge", graph.Ref{}, err)
	}
	if err := tx.insertEdge(id, source.ID, target.ID, data); err != nil {
		return 0, fail("add-edge", graph.E(id), err)
	}
	return id, nil
}

func (tx *Tx) checkEndpoints(refs ...graph.Ref) error {
	for _, ref := range refs {
		if ref.Kind != graph.Vertex {
			return fmt.Errorf("%w: endpoint %s is not a vertex", graph.ErrInvalidDataType, ref)
		}
		if err := tx.mustExist(ref); err != nil {
			return err
		}
	}
	return nil
}

// insertEdge writes an edge under an already allocated id and links it into
// both endpoints
func (tx *Tx) insertEdge(id, source, target graph.ID, data graph.Props) error {
	ref := graph.E(id)
	if err := tx.putData(ref, data); err != nil {
		return err
	}
	if err := tx.initDenorm(ref); err != nil {
		return err
	}
	if err := tx.linkEdgeEndpoints(id, source, target); err != nil {
		return err
	}
	if err := tx.addSourceSideDenorm(source, id, target); err != nil {
		return err
	}
	if err := tx.addTargetSideDenorm(target, id, source); err != nil {
		return err
	}
	if err := kv.ListAppend(tx.txn, tx.bucketOf(ref), id); err != nil {
		return err
	}
	return tx.addToAllIndexes(ref, data)
}

// RemoveEdge deletes an edge and unlinks it from both endpoints
func (tx *Tx) RemoveEdge(id graph.ID) error {
	if err := tx.removeEdge(id); err != nil {
		return fail("remove-edge", graph.E(id), err)
	}
	return nil
}

func (tx *Tx) removeEdge(id graph.ID) error {
	ref := graph.E(id)
	data, err := tx.Data(ref)
	if err != nil {
		return err
	}
	source, target, err := tx.endpoints(id)
	if err != nil {
		return err
	}
	if err := tx.removeSourceSideDenorm(source, id, target); err != nil {
		return err
	}
	if err := tx.removeTargetSideDenorm(target, id, source); err != nil {
		return err
	}
	return tx.erase(ref, data)
}

// RemoveNode deletes a vertex after removing every edge incident to it
func (tx *Tx) RemoveNode(id graph.ID) error {
	if err := tx.removeNode(id); err != nil {
		return fail("remove-node", graph.V(id), err)
	}
	return nil
}

func (tx *Tx) removeNode(id graph.ID) error {
	ref := graph.V(id)
	data, err := tx.Data(ref)
	if err != nil {
		return err
	}

	out, err := tx.rawList(ref, slotOutE)
	if err != nil {
		return err
	}
	in, err := tx.rawList(ref, slotInE)
	if err != nil {
		return err
	}
	seen := make(map[graph.ID]bool, len(out)+len(in))
	for _, e := range append(append([]graph.ID(nil), out...), in...) {
		if seen[e] {
			continue
		}
		seen[e] = true
		if err := tx.removeEdge(e); err != nil {
			return err
		}
	}
	return tx.erase(ref, data)
}

// erase drops an entity's own adjacency, bucket entry, index entries and data
func (tx *Tx) erase(ref graph.Ref, data graph.Props) error {
	if err := tx.dropDenorm(ref); err != nil {
		return err
	}
	if _, err := kv.ListRemoveOne(tx.txn, tx.bucketOf(ref), ref.ID); err != nil {
		return err
	}
	if err := tx.removeFromAllIndexes(ref, data); err != nil {
		return err
	}
	return tx.txn.Remove(dataKey(ref))
}

// UpdateData merges changes into an entity's data, refiling it in every index
func (tx *Tx) UpdateData(ref graph.Ref, changes graph.Props) error {
	norm, err := graph.Normalize(changes)
	if err != nil {
		return fail("update", ref, err)
	}
	err = tx.rewrite(ref, func(data graph.Props) {
		for field, value := range norm {
			data[field] = value
		}
	})
	if err != nil {
		return fail("update", ref, err)
	}
	return nil
}

// UnsetFields deletes fields from an entity's data, refiling it in every index
func (tx *Tx) UnsetFields(ref graph.Ref, fields ...string) error {
	err := tx.rewrite(ref, func(data graph.Props) {
		for _, field := range fields {
			delete(data, field)
		}
	})
	if err != nil {
		return fail("unset", ref, err)
	}
	return nil
}

// rewrite runs remove-from-indexes, mutate, write, re-add-to-indexes
func (tx *Tx) rewrite(ref graph.Ref, mutate func(graph.Props)) error {
	data, err := tx.Data(ref)
	if err != nil {
		return err
	}
	if err := tx.removeFromAllIndexes(ref, data); err != nil {
		return err
	}
	mutate(data)
	if err := tx.putData(ref, data); err != nil {
		return err
	}
	return tx.addToAllIndexes(ref, data)
}

// AddNode creates a vertex in its own transaction
func (d *Database) AddNode(props graph.Props) (*Node, error) {
	var id graph.ID
	err := d.update("add-node", graph.Ref{}, func(tx *Tx) error {
		var err error
		id, err = tx.AddNode(props)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.node(id), nil
}

// AddNodeWithID creates a vertex with a caller-chosen id
func (d *Database) AddNodeWithID(id graph.ID, props graph.Props) (*Node, error) {
	err := d.update("add-node", graph.V(id), func(tx *Tx) error {
		return tx.AddNodeWithID(id, props)
	})
	if err != nil {
		return nil, err
	}
	return d.node(id), nil
}

// AddEdge creates an edge between two vertex handles in its own transaction
func (d *Database) AddEdge(source, target Entity, props graph.Props) (*Edge, error) {
	var id graph.ID
	err := d.update("add-edge", graph.Ref{}, func(tx *Tx) error {
		s, t, err := vertexRefs(source, target)
		if err != nil {
			return err
		}
		id, err = tx.AddEdge(s, t, props)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.edge(id), nil
}

// AddEdgeWithID creates an edge with a caller-chosen id
func (d *Database) AddEdgeWithID(id graph.ID, source, target Entity, props graph.Props) (*Edge, error) {
	err := d.update("add-edge", graph.E(id), func(tx *Tx) error {
		s, t, err := vertexRefs(source, target)
		if err != nil {
			return err
		}
		return tx.AddEdgeWithID(id, s, t, props)
	})
	if err != nil {
		return nil, err
	}
	return d.edge(id), nil
}

func vertexRefs(source, target Entity) (graph.Ref, graph.Ref, error) {
	var refs [2]graph.Ref
	for i, e := range []Entity{source, target} {
		n, ok := e.(*Node)
		if !ok || n == nil {
			return graph.Ref{}, graph.Ref{}, fmt.Errorf("%w: edge endpoint %T is not a *Node", graph.ErrInvalidDataType, e)
		}
		refs[i] = n.Ref()
	}
	return refs[0], refs[1], nil
}

// RemoveNode deletes a vertex and its edges in one transaction
func (d *Database) RemoveNode(id graph.ID) error {
	return d.update("remove-node", graph.V(id), func(tx *Tx) error {
		return tx.RemoveNode(id)
	})
}

// RemoveEdge deletes an edge in its own transaction
func (d *Database) RemoveEdge(id graph.ID) error {
	return d.update("remove-edge", graph.E(id), func(tx *Tx) error {
		return tx.RemoveEdge(id)
	})
}

// UpdateData merges changes into an entity's data in its own transaction
func (d *Database) UpdateData(ref graph.Ref, changes graph.Props) error {
	return d.update("update", ref, func(tx *Tx) error {
		return tx.UpdateData(ref, changes)
	})
}

// UnsetFields deletes fields from an entity's data in its own transaction
func (d *Database) UnsetFields(ref graph.Ref, fields ...string) error {
	return d.update("unset", ref, func(tx *Tx) error {
		return tx.UnsetFields(ref, fields...)
	})
}

// Data returns an entity's property bag
func (d *Database) Data(ref graph.Ref) (graph.Props, error) {
	var data graph.Props
	err := d.View(func(tx *Tx) error {
		var err error
		data, err = tx.Data(ref)
		return err
	})
	return data, err
}

// Exists reports whether an entity is stored
func (d *Database) Exists(ref graph.Ref) (bool, error) {
	var ok bool
	err := d.View(func(tx *Tx) error {
		var err error
		ok, err = tx.Exists(ref)
		return err
	})
	return ok, err
}
