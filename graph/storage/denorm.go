package storage

import (
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/kv"
)

var (
	slotInE   = graph.Slot{Target: graph.Edge, Dir: graph.In}
	slotOutE  = graph.Slot{Target: graph.Edge, Dir: graph.Out}
	slotBothE = graph.Slot{Target: graph.Edge, Dir: graph.Both}
	slotInV   = graph.Slot{Target: graph.Vertex, Dir: graph.In}
	slotOutV  = graph.Slot{Target: graph.Vertex, Dir: graph.Out}
	slotBothV = graph.Slot{Target: graph.Vertex, Dir: graph.Both}
)

var markerValue = []byte{1}

// initDenorm creates the empty lists and zero counters an entity owns
func (tx *Tx) initDenorm(ref graph.Ref) error {
	for _, slot := range graph.SlotsOf(ref.Kind) {
		if err := kv.InitList(tx.txn, listKey(ref, slot)); err != nil {
			return err
		}
		if err := kv.InitCounter(tx.txn, countKey(ref, slot), 0); err != nil {
			return err
		}
	}
	return nil
}

// dropDenorm deletes every list, counter and marker an entity owns
func (tx *Tx) dropDenorm(ref graph.Ref) error {
	for _, slot := range graph.SlotsOf(ref.Kind) {
		if err := tx.txn.Remove(listKey(ref, slot)); err != nil {
			return err
		}
		if err := tx.txn.Remove(countKey(ref, slot)); err != nil {
			return err
		}
	}
	return tx.txn.RemovePrefix(markerPrefix(ref))
}

// addDenorm records candidate in one of owner's adjacency slots
func (tx *Tx) addDenorm(owner graph.Ref, slot graph.Slot, candidate graph.ID) error {
	if err := kv.ListAppend(tx.txn, listKey(owner, slot), candidate); err != nil {
		return err
	}
	if err := kv.Incr(tx.txn, countKey(owner, slot)); err != nil {
		return err
	}
	return tx.txn.Set(markerKey(owner, slot, candidate), markerValue)
}

// removeDenorm removes one occurrence of candidate from owner's slot. The
// membership marker goes only with the last occurrence.
func (tx *Tx) removeDenorm(owner graph.Ref, slot graph.Slot, candidate graph.ID) error {
	key := listKey(owner, slot)
	removed, err := kv.ListRemoveOne(tx.txn, key, candidate)
	if err != nil || !removed {
		return err
	}
	if err := kv.Decr(tx.txn, countKey(owner, slot)); err != nil {
		return err
	}
	still, err := kv.ListContains(tx.txn, key, candidate)
	if err != nil || still {
		return err
	}
	return tx.txn.Remove(markerKey(owner, slot, candidate))
}

// addSourceSideDenorm links edge to its source vertex
func (tx *Tx) addSourceSideDenorm(source, edge, target graph.ID) error {
	return tx.applySide(tx.addDenorm, graph.V(source), slotOutE, slotOutV, edge, target)
}

// addTargetSideDenorm links edge to its target vertex
func (tx *Tx) addTargetSideDenorm(target, edge, source graph.ID) error {
	return tx.applySide(tx.addDenorm, graph.V(target), slotInE, slotInV, edge, source)
}

// removeSourceSideDenorm unlinks edge from its source vertex
func (tx *Tx) removeSourceSideDenorm(source, edge, target graph.ID) error {
	return tx.applySide(tx.removeDenorm, graph.V(source), slotOutE, slotOutV, edge, target)
}

// removeTargetSideDenorm unlinks edge from its target vertex
func (tx *Tx) removeTargetSideDenorm(target, edge, source graph.ID) error {
	return tx.applySide(tx.removeDenorm, graph.V(target), slotInE, slotInV, edge, source)
}

// applySide touches the directional and "both" slots of one endpoint
func (tx *Tx) applySide(op func(graph.Ref, graph.Slot, graph.ID) error, vertex graph.Ref, edgeSlot, vertexSlot graph.Slot, edge, other graph.ID) error {
	steps := []struct {
		slot graph.Slot
		id   graph.ID
	}{
		{edgeSlot, edge},
		{vertexSlot, other},
		{slotBothE, edge},
		{slotBothV, other},
	}
	for _, s := range steps {
		if err := op(vertex, s.slot, s.id); err != nil {
			return err
		}
	}
	return nil
}

// linkEdgeEndpoints fills an edge's own vertex slots
func (tx *Tx) linkEdgeEndpoints(edge, source, target graph.ID) error {
	ref := graph.E(edge)
	if err := tx.addDenorm(ref, slotInV, source); err != nil {
		return err
	}
	if err := tx.addDenorm(ref, slotOutV, target); err != nil {
		return err
	}
	if err := tx.addDenorm(ref, slotBothV, source); err != nil {
		return err
	}
	return tx.addDenorm(ref, slotBothV, target)
}

// endpoints resolves an edge's source and target from its own lists
func (tx *Tx) endpoints(edge graph.ID) (source, target graph.ID, err error) {
	ref := graph.E(edge)
	in, err := tx.firstOf(ref, slotInV)
	if err != nil {
		return 0, 0, err
	}
	out, err := tx.firstOf(ref, slotOutV)
	if err != nil {
		return 0, 0, err
	}
	return in, out, nil
}

func (tx *Tx) firstOf(ref graph.Ref, slot graph.Slot) (graph.ID, error) {
	ids, err := tx.rawList(ref, slot)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, missingKey(ref, slot)
	}
	return ids[0], nil
}
