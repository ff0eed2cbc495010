package storage

import (
	"fmt"

	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/traversal"
)

// Entity is a handle on a stored vertex or edge. Handles hold no state of
// their own: every read and write goes through the Database.
type Entity interface {
	Kind() graph.Kind
	ID() graph.ID
	Ref() graph.Ref
	Data() (graph.Props, error)
	database() *Database
}

// Same reports whether a and b name the same entity in the same database
func Same(a, b Entity) bool {
	return a.Ref() == b.Ref() && a.database() == b.database()
}

type entity struct {
	db  *Database
	ref graph.Ref
}

func (e entity) Kind() graph.Kind { return e.ref.Kind }
func (e entity) ID() graph.ID { return e.ref.ID }
func (e entity) Ref() graph.Ref { return e.ref }
func (e entity) String() string { return e.ref.String() }
func (e entity) database() *Database { return e.db }
func (e entity) Data() (graph.Props, error) { return e.db.Data(e.ref) }

// Get returns a field's value, failing with ErrFieldNotFound when the field
// is absent
func (e entity) Get(field string) (any, error) {
	v, ok, err := e.Lookup(field)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", graph.ErrFieldNotFound, field, e.ref)
	}
	return v, nil
}

// Lookup returns a field's value and whether it is present
func (e entity) Lookup(field string) (any, bool, error) {
	data, err := e.Data()
	if err != nil {
		return nil, false, err
	}
	v, ok := data.Lookup(field)
	return v, ok, nil
}

// Set writes one field
func (e entity) Set(field string, value any) error {
	return e.db.UpdateData(e.ref, graph.Props{field: value})
}

// Update merges changes into the entity's data
func (e entity) Update(changes graph.Props) error {
	return e.db.UpdateData(e.ref, changes)
}

// Unset deletes fields from the entity's data
func (e entity) Unset(fields ...string) error {
	return e.db.UnsetFields(e.ref, fields...)
}

// Exists reports whether the entity is still stored
func (e entity) Exists() (bool, error) {
	return e.db.Exists(e.ref)
}

// Traverse starts a traversal at this entity
func (e entity) Traverse() *traversal.Iterator {
	return e.db.From(e.ref.Kind, e.ref.ID)
}

// InV moves to adjacent vertices along incoming links
func (e entity) InV(opts ...traversal.HopOption) *traversal.Iterator {
	return e.Traverse().InV(opts...)
}

// OutV moves to adjacent vertices along outgoing links
func (e entity) OutV(opts ...traversal.HopOption) *traversal.Iterator {
	return e.Traverse().OutV(opts...)
}

// BothV moves to adjacent vertices in either direction
func (e entity) BothV(opts ...traversal.HopOption) *traversal.Iterator {
	return e.Traverse().BothV(opts...)
}

// Node is a handle on a vertex
type Node struct {
	entity
}

func (d *Database) node(id graph.ID) *Node {
	return &Node{entity{db: d, ref: graph.V(id)}}
}

// Node returns a handle on an existing vertex
func (d *Database) Node(id graph.ID) (*Node, error) {
	if err := d.mustExist(graph.V(id)); err != nil {
		return nil, err
	}
	return d.node(id), nil
}

// Remove deletes the vertex and every incident edge
func (n *Node) Remove() error {
	return n.db.RemoveNode(n.ref.ID)
}

// AddEdge creates an edge from n to target
func (n *Node) AddEdge(target *Node, props graph.Props) (*Edge, error) {
	return n.db.AddEdge(n, target, props)
}

// InE moves to incoming edges
func (n *Node) InE(opts ...traversal.HopOption) *traversal.Iterator {
	return n.Traverse().InE(opts...)
}

// OutE moves to outgoing edges
func (n *Node) OutE(opts ...traversal.HopOption) *traversal.Iterator {
	return n.Traverse().OutE(opts...)
}

// BothE moves to incident edges
func (n *Node) BothE(opts ...traversal.HopOption) *traversal.Iterator {
	return n.Traverse().BothE(opts...)
}

// In moves to vertices reached through incoming edges
func (n *Node) In(opts ...traversal.HopOption) *traversal.Iterator {
	return n.Traverse().In(opts...)
}

// Out moves to vertices reached through outgoing edges
func (n *Node) Out(opts ...traversal.HopOption) *traversal.Iterator {
	return n.Traverse().Out(opts...)
}

// Both moves to vertices reached through edges in either direction
func (n *Node) Both(opts ...traversal.HopOption) *traversal.Iterator {
	return n.Traverse().Both(opts...)
}

// Edge is a handle on an edge
type Edge struct {
	entity
}

func (d *Database) edge(id graph.ID) *Edge {
	return &Edge{entity{db: d, ref: graph.E(id)}}
}

// Edge returns a handle on an existing edge
func (d *Database) Edge(id graph.ID) (*Edge, error) {
	if err := d.mustExist(graph.E(id)); err != nil {
		return nil, err
	}
	return d.edge(id), nil
}

// Remove deletes the edge
func (e *Edge) Remove() error {
	return e.db.RemoveEdge(e.ref.ID)
}

// SourceID returns the id of the vertex the edge leaves
func (e *Edge) SourceID() (graph.ID, error) {
	return e.endpoint(slotInV)
}

// TargetID returns the id of the vertex the edge enters
func (e *Edge) TargetID() (graph.ID, error) {
	return e.endpoint(slotOutV)
}

func (e *Edge) endpoint(slot graph.Slot) (graph.ID, error) {
	var id graph.ID
	err := e.db.View(func(tx *Tx) error {
		var err error
		id, err = tx.firstOf(e.ref, slot)
		return err
	})
	return id, err
}

// Source returns a handle on the source vertex
func (e *Edge) Source() (*Node, error) {
	id, err := e.SourceID()
	if err != nil {
		return nil, err
	}
	return e.db.node(id), nil
}

// Target returns a handle on the target vertex
func (e *Edge) Target() (*Node, error) {
	id, err := e.TargetID()
	if err != nil {
		return nil, err
	}
	return e.db.node(id), nil
}

func (d *Database) mustExist(ref graph.Ref) error {
	return d.View(func(tx *Tx) error {
		return tx.mustExist(ref)
	})
}
