// Package traversal implements lazy, composable graph queries. An Iterator
// describes a chain of hops and filters over entity ids of one kind; nothing
// touches storage until a terminal operation (Count, Data, Collect, ...) runs
// the chain inside a single read snapshot.
package traversal

import (
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/annotations"
)

// Reader is a read snapshot of the graph
type Reader interface {
	// Neighbors returns the ids in ref's adjacency slot that match filter,
	// choosing between the slot's list and a matching index
	Neighbors(ref graph.Ref, slot graph.Slot, filter graph.Filter, cache *graph.LookupCache) ([]graph.ID, error)

	// Scan returns every id of kind whose data matches filter
	Scan(kind graph.Kind, filter graph.Filter) ([]graph.ID, error)

	// Data returns an entity's property bag
	Data(ref graph.Ref) (graph.Props, error)

	Close() error
}

// Backend is the graph engine the iterators run against
type Backend interface {
	// Read opens a read snapshot
	Read() (Reader, error)

	// RemoveEntity deletes one entity in its own transaction
	RemoveEntity(ref graph.Ref) error

	// UpdateEntity merges changes into one entity's data in its own transaction
	UpdateEntity(ref graph.Ref, changes graph.Props) error
}

// HopFilterMode selects what the predicate of a combined Out/In/Both hop is
// tested against
type HopFilterMode int

const (
	// FilterEdges tests the traversed edge
	FilterEdges HopFilterMode = iota
	// FilterNeighbors tests the vertex reached through the edge
	FilterNeighbors
)

func (m HopFilterMode) String() string {
	if m == FilterNeighbors {
		return "neighbors"
	}
	return "edges"
}

// ParseHopFilterMode parses "edges" or "neighbors"
func ParseHopFilterMode(s string) (HopFilterMode, bool) {
	switch s {
	case "edges", "":
		return FilterEdges, true
	case "neighbors":
		return FilterNeighbors, true
	}
	return FilterEdges, false
}

// Config controls how iterators execute
type Config struct {
	CombinedHopFilter HopFilterMode
	DisableCache      bool                   // no per-run adjacency cache
	Annotations       *annotations.Collector // nil disables events
}
