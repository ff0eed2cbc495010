package traversal

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-graph/graph"
)

// Iterator is an immutable description of a traversal over ids of one kind.
// Every non-terminal operation returns a new Iterator wrapping its parent;
// every terminal operation executes the chain once, in a fresh read snapshot.
type Iterator struct {
	backend Backend
	cfg     Config
	kind    graph.Kind
	build   func(r *run) cursor
	aliases []string
	path    []string
	err     error
}

// From starts a traversal at the given ids
func From(b Backend, cfg Config, kind graph.Kind, ids ...graph.ID) *Iterator {
	start := append([]graph.ID(nil), ids...)
	return &Iterator{
		backend: b,
		cfg:     cfg,
		kind:    kind,
		build: func(*run) cursor {
			return newSliceIterator(start)
		},
		path: []string{fmt.Sprintf("%s%v", kind, start)},
	}
}

// All starts a traversal over every entity of kind matching filter
func All(b Backend, cfg Config, kind graph.Kind, filter graph.Filter) *Iterator {
	name := "V"
	if kind == graph.Edge {
		name = "E"
	}
	if !filter.Empty() {
		name += fmt.Sprint(map[string]any(filter))
	}
	return &Iterator{
		backend: b,
		cfg:     cfg,
		kind:    kind,
		build: func(r *run) cursor {
			return newScanIterator(r, kind, filter)
		},
		path: []string{name},
	}
}

// Kind returns the kind of entity the iterator produces
func (it *Iterator) Kind() graph.Kind {
	return it.kind
}

// Err returns the construction error, if any. Terminals report it too.
func (it *Iterator) Err() error {
	return it.err
}

// String describes the chain, e.g. "vertex[0].out.dedup"
func (it *Iterator) String() string {
	return strings.Join(it.path, ".")
}

// derive returns a child iterator producing kind through wrap
func (it *Iterator) derive(step string, kind graph.Kind, wrap func(r *run, source cursor) cursor) *Iterator {
	parent := it.build
	child := &Iterator{
		backend: it.backend,
		cfg:     it.cfg,
		kind:    kind,
		aliases: it.aliases,
		path:    append(append([]string(nil), it.path...), step),
		err:     it.err,
	}
	child.build = func(r *run) cursor {
		return wrap(r, parent(r))
	}
	return child
}

// fail returns a child iterator that reports err at its terminal
func (it *Iterator) fail(step string, err error) *Iterator {
	child := it.derive(step, it.kind, func(_ *run, source cursor) cursor { return source })
	if child.err == nil {
		child.err = err
	}
	return child
}

// hop moves through one adjacency slot, depth times
func (it *Iterator) hop(target graph.Kind, dir graph.Direction, opts []HopOption) *Iterator {
	o := newHopOptions(opts)
	slot := graph.Slot{Target: target, Dir: dir}
	step := slot.String()
	if o.depth > 1 {
		step = fmt.Sprintf("%s(%d)", step, o.depth)
	}

	// An edge-kind hop from an edge has no slot to read. Between repeats of
	// an edge hop, step to the far endpoint of each edge.
	if target == graph.Edge && it.kind == graph.Edge {
		return it.fail(step, fmt.Errorf("%w: %s from %s", graph.ErrNoSuchTraversal, slot, it.kind))
	}

	from := it.kind
	return it.derive(step, target, func(r *run, source cursor) cursor {
		cur, kind := source, from
		for i := 0; i < o.depth; i++ {
			if kind == graph.Edge && target == graph.Edge {
				cur = newHopIterator(r, cur, graph.Edge, graph.Slot{Target: graph.Vertex, Dir: dir}, nil)
				kind = graph.Vertex
			}
			cur = newHopIterator(r, cur, kind, slot, o.filterFor(i))
			kind = target
		}
		return cur
	})
}

// InV moves to adjacent vertices along incoming links
func (it *Iterator) InV(opts ...HopOption) *Iterator {
	return it.hop(graph.Vertex, graph.In, opts)
}

// OutV moves to adjacent vertices along outgoing links
func (it *Iterator) OutV(opts ...HopOption) *Iterator {
	return it.hop(graph.Vertex, graph.Out, opts)
}

// BothV moves to adjacent vertices in either direction
func (it *Iterator) BothV(opts ...HopOption) *Iterator {
	return it.hop(graph.Vertex, graph.Both, opts)
}

// InE moves to incoming edges
func (it *Iterator) InE(opts ...HopOption) *Iterator {
	return it.hop(graph.Edge, graph.In, opts)
}

// OutE moves to outgoing edges
func (it *Iterator) OutE(opts ...HopOption) *Iterator {
	return it.hop(graph.Edge, graph.Out, opts)
}

// BothE moves to incident edges in either direction
func (it *Iterator) BothE(opts ...HopOption) *Iterator {
	return it.hop(graph.Edge, graph.Both, opts)
}

// combined moves vertex to vertex through edges, depth times
func (it *Iterator) combined(name string, dirs []graph.Direction, opts []HopOption) *Iterator {
	o := newHopOptions(opts)
	step := name
	if o.depth > 1 {
		step = fmt.Sprintf("%s(%d)", step, o.depth)
	}
	if it.kind != graph.Vertex {
		return it.fail(step, fmt.Errorf("%w: %s from %s", graph.ErrNoSuchTraversal, name, it.kind))
	}

	mode := it.cfg.CombinedHopFilter
	return it.derive(step, graph.Vertex, func(r *run, source cursor) cursor {
		cur := source
		for i := 0; i < o.depth; i++ {
			cur = newCombinedIterator(r, cur, dirs, o.filterFor(i), mode)
		}
		return cur
	})
}

// Out moves to vertices reached through outgoing edges
func (it *Iterator) Out(opts ...HopOption) *Iterator {
	return it.combined("out", []graph.Direction{graph.Out}, opts)
}

// In moves to vertices reached through incoming edges
func (it *Iterator) In(opts ...HopOption) *Iterator {
	return it.combined("in", []graph.Direction{graph.In}, opts)
}

// Both moves to vertices reached through outgoing then incoming edges. The
// vertex being expanded is never produced by its own expansion.
func (it *Iterator) Both(opts ...HopOption) *Iterator {
	return it.combined("both", []graph.Direction{graph.Out, graph.In}, opts)
}

// Dedup drops ids already produced earlier in the same execution
func (it *Iterator) Dedup() *Iterator {
	return it.derive("dedup", it.kind, func(_ *run, source cursor) cursor {
		return newDedupIterator(source)
	})
}

// Limit stops after n ids
func (it *Iterator) Limit(n int) *Iterator {
	if n < 0 {
		n = 0
	}
	return it.derive(fmt.Sprintf("limit(%d)", n), it.kind, func(_ *run, source cursor) cursor {
		return newLimitIterator(source, n)
	})
}

// Aka names the entity currently flowing through this point so that Collect
// can report it alongside every id produced downstream
func (it *Iterator) Aka(alias string) *Iterator {
	kind := it.kind
	child := it.derive(fmt.Sprintf("aka(%s)", alias), kind, func(r *run, source cursor) cursor {
		return newAkaIterator(r, source, kind, alias)
	})
	child.aliases = append(append([]string(nil), it.aliases...), alias)
	return child
}

// open builds the chain over a new read snapshot. The caller closes r.reader.
func (it *Iterator) open() (*run, cursor, error) {
	if it.err != nil {
		return nil, nil, it.err
	}
	reader, err := it.backend.Read()
	if err != nil {
		return nil, nil, err
	}
	r := newRun(reader, it.cfg)
	return r, it.build(r), nil
}
