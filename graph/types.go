// Package graph holds the vocabulary shared by the storage engine and the
// traversal algebra: entity kinds, ids, directions, property bags and the
// error taxonomy.
package graph

import (
	"fmt"
)

// Kind discriminates vertices from edges. Both kinds share one key namespace
// in the backing store, so the kind is always part of an entity's identity.
type Kind uint8

const (
	Vertex Kind = iota
	Edge
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Vertex:
		return "vertex"
	case Edge:
		return "edge"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == Vertex || k == Edge
}

// ParseKind parses "vertex"/"v" or "edge"/"e"
func ParseKind(s string) (Kind, error) {
	switch s {
	case "vertex", "v", "V", "node":
		return Vertex, nil
	case "edge", "e", "E":
		return Edge, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// ID identifies an entity within its kind. Vertex and edge ids are allocated
// from independent counters and are never reused.
type ID = uint64

// Direction of an adjacency hop
type Direction uint8

const (
	In Direction = iota
	Out
	Both
)

// String returns the direction name
func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection parses "in", "out" or "both"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "in":
		return In, nil
	case "out":
		return Out, nil
	case "both":
		return Both, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Ref names one entity: kind plus id
type Ref struct {
	Kind Kind
	ID   ID
}

// V is shorthand for a vertex reference
func V(id ID) Ref { return Ref{Kind: Vertex, ID: id} }

// E is shorthand for an edge reference
func E(id ID) Ref { return Ref{Kind: Edge, ID: id} }

// String returns "vertex:12" style text
func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Slot names one of an entity's denormalized adjacency lists: the kind of the
// entities stored in it and the direction they were reached in.
//
// A vertex owns six slots (in/out/both × vertex/edge). An edge owns three
// vertex slots: In holds its source, Out its target, Both the pair.
type Slot struct {
	Target Kind
	Dir    Direction
}

// String returns "outE"/"inV" style text
func (s Slot) String() string {
	suffix := "V"
	if s.Target == Edge {
		suffix = "E"
	}
	return s.Dir.String() + suffix
}

// VertexSlots lists the six adjacency slots owned by every vertex
var VertexSlots = []Slot{
	{Edge, In}, {Edge, Out}, {Edge, Both},
	{Vertex, In}, {Vertex, Out}, {Vertex, Both},
}

// EdgeSlots lists the three adjacency slots owned by every edge
var EdgeSlots = []Slot{
	{Vertex, In}, {Vertex, Out}, {Vertex, Both},
}

// SlotsOf returns the adjacency slots an entity of kind k owns
func SlotsOf(k Kind) []Slot {
	if k == Edge {
		return EdgeSlots
	}
	return VertexSlots
}
