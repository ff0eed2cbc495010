package storage

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/annotations"
)

// adjacency returns ref's raw list for slot, consulting cache first
func (tx *Tx) adjacency(ref graph.Ref, slot graph.Slot, cache *graph.LookupCache) ([]graph.ID, error) {
	key := graph.AdjacencyKey{Kind: ref.Kind, ID: ref.ID, Slot: slot}
	if ids, ok := cache.Get(key); ok {
		return ids, nil
	}
	ids, err := tx.rawList(ref, slot)
	if err != nil {
		return nil, err
	}
	cache.Put(key, ids)
	return ids, nil
}

// Neighbors returns the ids in ref's adjacency slot whose data matches
// filter. When an index covers exactly the filter's fields and its postings
// list is no longer than the slot, candidates come from the index and are
// confirmed through membership markers; otherwise the slot's list is read
// (through cache when given) and each candidate's data is tested.
//
// The two paths differ on repeated list entries. The index path yields each
// confirmed neighbor once, while the scan path yields one id per occurrence,
// so a neighbor joined by parallel edges repeats. Apply Dedup to a hop when
// set semantics are needed.
func (tx *Tx) Neighbors(ref graph.Ref, slot graph.Slot, filter graph.Filter, cache *graph.LookupCache) ([]graph.ID, error) {
	if ref.Kind == graph.Edge && slot.Target == graph.Edge {
		return nil, fmt.Errorf("%w: %s from %s", graph.ErrNoSuchTraversal, slot, ref)
	}
	if filter.Empty() {
		return tx.adjacency(ref, slot, cache)
	}

	start := time.Now()
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	indexed := -1
	sequential, err := tx.adjacencyCount(ref, slot)
	if err != nil {
		return nil, err
	}

	index, ok, err := tx.lookupIndex(slot.Target, filter.Fields())
	if err != nil {
		return nil, err
	}
	if ok {
		candidates, err := tx.postings(index, filter.Values())
		if err != nil {
			return nil, err
		}
		indexed = len(candidates)
		if uint64(indexed) <= sequential {
			var out []graph.ID
			for _, c := range candidates {
				adjacent, err := tx.txn.Has(markerKey(ref, slot, c))
				if err != nil {
					return nil, err
				}
				if adjacent {
					out = append(out, c)
				}
			}
			tx.traceNeighbors(annotations.NeighborsIndexed, start, ref, slot, indexed, sequential, len(out))
			return out, nil
		}
	}

	raw, err := tx.adjacency(ref, slot, cache)
	if err != nil {
		return nil, err
	}
	var out []graph.ID
	for _, c := range raw {
		data, err := tx.Data(graph.Ref{Kind: slot.Target, ID: c})
		if err != nil {
			return nil, err
		}
		if filter.Match(data) {
			out = append(out, c)
		}
	}
	tx.traceNeighbors(annotations.NeighborsScanned, start, ref, slot, indexed, sequential, len(out))
	return out, nil
}

func (tx *Tx) traceNeighbors(event string, start time.Time, ref graph.Ref, slot graph.Slot, indexed int, sequential uint64, result int) {
	tx.db.log.WithFields(logrus.Fields{
		"entity":     ref,
		"slot":       slot,
		"indexed":    indexed,
		"sequential": sequential,
	}).Debug(event)
	tx.db.annotations.AddTiming(event, start, map[string]interface{}{
		"entity":     ref.String(),
		"slot":       slot.String(),
		"indexed":    indexed,
		"sequential": sequential,
		"result":     result,
	})
}

// Query returns every id of kind whose data matches filter, from an index on
// exactly the filter's fields when one exists
func (tx *Tx) Query(kind graph.Kind, filter graph.Filter) ([]graph.ID, error) {
	if filter.Empty() {
		return tx.allIDs(kind)
	}

	start := time.Now()
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	index, ok, err := tx.lookupIndex(kind, filter.Fields())
	if err != nil {
		return nil, err
	}
	if ok {
		ids, err := tx.postings(index, filter.Values())
		if err != nil {
			return nil, err
		}
		tx.traceQuery(annotations.QueryIndexed, start, kind, filter, len(ids))
		return ids, nil
	}

	all, err := tx.allIDs(kind)
	if err != nil {
		return nil, err
	}
	var out []graph.ID
	for _, id := range all {
		data, err := tx.Data(graph.Ref{Kind: kind, ID: id})
		if err != nil {
			return nil, err
		}
		if filter.Match(data) {
			out = append(out, id)
		}
	}
	tx.traceQuery(annotations.QueryScanned, start, kind, filter, len(out))
	return out, nil
}

func (tx *Tx) traceQuery(event string, start time.Time, kind graph.Kind, filter graph.Filter, result int) {
	tx.db.annotations.AddTiming(event, start, map[string]interface{}{
		"kind":   kind.String(),
		"filter": map[string]any(filter),
		"result": result,
	})
}

// Neighbors reads one adjacency slot in its own read transaction. See
// Tx.Neighbors for how repeated entries are reported.
func (d *Database) Neighbors(ref graph.Ref, slot graph.Slot, filter graph.Filter, cache *graph.LookupCache) ([]graph.ID, error) {
	var ids []graph.ID
	err := d.View(func(tx *Tx) error {
		var err error
		ids, err = tx.Neighbors(ref, slot, filter, cache)
		return err
	})
	return ids, err
}

// AllIDs returns every live id of kind
func (d *Database) AllIDs(kind graph.Kind) ([]graph.ID, error) {
	var ids []graph.ID
	err := d.View(func(tx *Tx) error {
		var err error
		ids, err = tx.allIDs(kind)
		return err
	})
	return ids, err
}

// Query returns every id of kind whose data matches filter
func (d *Database) Query(kind graph.Kind, filter graph.Filter) ([]graph.ID, error) {
	var ids []graph.ID
	err := d.View(func(tx *Tx) error {
		var err error
		ids, err = tx.Query(kind, filter)
		return err
	})
	return ids, err
}
