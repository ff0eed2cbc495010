package traversal

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/wbrown/janus-graph/graph"
)

// cursor is one stage of an executing chain. Next pulls lazily from the
// stage upstream; Err reports why Next returned false, if not exhaustion.
type cursor interface {
	Next() bool
	ID() graph.ID
	Err() error
}

// run is the state shared by every stage of one execution
type run struct {
	reader  Reader
	cache   *graph.LookupCache
	aliases map[string]graph.Ref
}

func newRun(reader Reader, cfg Config) *run {
	r := &run{
		reader:  reader,
		aliases: make(map[string]graph.Ref),
	}
	if !cfg.DisableCache {
		r.cache = graph.NewLookupCache()
	}
	return r
}

// sliceIterator yields a fixed id list
type sliceIterator struct {
	ids []graph.ID
	pos int
	cur graph.ID
}

func newSliceIterator(ids []graph.ID) *sliceIterator {
	return &sliceIterator{ids: ids}
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.ids) {
		return false
	}
	it.cur = it.ids[it.pos]
	it.pos++
	return true
}

func (it *sliceIterator) ID() graph.ID { return it.cur }
func (it *sliceIterator) Err() error { return nil }

// scanIterator yields every id of a kind matching a filter. The scan runs on
// the first call to Next.
type scanIterator struct {
	r       *run
	kind    graph.Kind
	filter  graph.Filter
	ids     sliceIterator
	started bool
	err     error
}

func newScanIterator(r *run, kind graph.Kind, filter graph.Filter) *scanIterator {
	return &scanIterator{r: r, kind: kind, filter: filter}
}

func (it *scanIterator) Next() bool {
	if !it.started {
		it.started = true
		ids, err := it.r.reader.Scan(it.kind, it.filter)
		if err != nil {
			it.err = err
			return false
		}
		it.ids.ids = ids
	}
	if it.err != nil {
		return false
	}
	return it.ids.Next()
}

func (it *scanIterator) ID() graph.ID { return it.ids.ID() }
func (it *scanIterator) Err() error { return it.err }

// hopIterator expands each upstream id into its neighbors in one slot
type hopIterator struct {
	r      *run
	source cursor
	from   graph.Kind
	slot   graph.Slot
	filter graph.Filter
	buf    sliceIterator
	err    error
}

func newHopIterator(r *run, source cursor, from graph.Kind, slot graph.Slot, filter graph.Filter) *hopIterator {
	return &hopIterator{r: r, source: source, from: from, slot: slot, filter: filter}
}

func (it *hopIterator) Next() bool {
	for {
		if it.err != nil {
			return false
		}
		if it.buf.Next() {
			return true
		}
		if !it.source.Next() {
			it.err = it.source.Err()
			return false
		}
		ref := graph.Ref{Kind: it.from, ID: it.source.ID()}
		ids, err := it.r.reader.Neighbors(ref, it.slot, it.filter, it.r.cache)
		if err != nil {
			it.err = err
			return false
		}
		it.buf = sliceIterator{ids: ids}
	}
}

func (it *hopIterator) ID() graph.ID { return it.buf.ID() }
func (it *hopIterator) Err() error { return it.err }

// combinedIterator moves vertex to vertex through edges. For each upstream
// vertex it walks every direction in dirs in order: the vertex's edges in
// that direction, then each edge's endpoint on the far side.
type combinedIterator struct {
	r             *run
	source        cursor
	dirs          []graph.Direction
	edgeFilter    graph.Filter
	vertexFilter  graph.Filter
	excludeOrigin bool
	buf           sliceIterator
	err           error
}

func newCombinedIterator(r *run, source cursor, dirs []graph.Direction, filter graph.Filter, mode HopFilterMode) *combinedIterator {
	it := &combinedIterator{
		r:             r,
		source:        source,
		dirs:          dirs,
		excludeOrigin: len(dirs) > 1,
	}
	if mode == FilterNeighbors {
		it.vertexFilter = filter
	} else {
		it.edgeFilter = filter
	}
	return it
}

func (it *combinedIterator) Next() bool {
	for {
		if it.err != nil {
			return false
		}
		if it.buf.Next() {
			return true
		}
		if !it.source.Next() {
			it.err = it.source.Err()
			return false
		}
		ids, err := it.expand(it.source.ID())
		if err != nil {
			it.err = err
			return false
		}
		it.buf = sliceIterator{ids: ids}
	}
}

func (it *combinedIterator) expand(origin graph.ID) ([]graph.ID, error) {
	var out []graph.ID
	for _, dir := range it.dirs {
		edges, err := it.r.reader.Neighbors(graph.V(origin), graph.Slot{Target: graph.Edge, Dir: dir}, it.edgeFilter, it.r.cache)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			far, err := it.r.reader.Neighbors(graph.E(e), graph.Slot{Target: graph.Vertex, Dir: dir}, it.vertexFilter, it.r.cache)
			if err != nil {
				return nil, err
			}
			for _, v := range far {
				if it.excludeOrigin && v == origin {
					continue
				}
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (it *combinedIterator) ID() graph.ID { return it.buf.ID() }
func (it *combinedIterator) Err() error { return it.err }

// dedupIterator drops ids already produced by this execution
type dedupIterator struct {
	source cursor
	seen   *roaring64.Bitmap
}

func newDedupIterator(source cursor) *dedupIterator {
	return &dedupIterator{source: source, seen: roaring64.New()}
}

func (it *dedupIterator) Next() bool {
	for it.source.Next() {
		if it.seen.CheckedAdd(it.source.ID()) {
			return true
		}
	}
	return false
}

func (it *dedupIterator) ID() graph.ID { return it.source.ID() }
func (it *dedupIterator) Err() error { return it.source.Err() }

// limitIterator stops after n ids without pulling an n+1th from upstream
type limitIterator struct {
	source cursor
	limit  int
	count  int
}

func newLimitIterator(source cursor, n int) *limitIterator {
	return &limitIterator{source: source, limit: n}
}

func (it *limitIterator) Next() bool {
	if it.count >= it.limit {
		return false
	}
	if !it.source.Next() {
		return false
	}
	it.count++
	return true
}

func (it *limitIterator) ID() graph.ID { return it.source.ID() }
func (it *limitIterator) Err() error { return it.source.Err() }

// akaIterator binds each id it passes to an alias
type akaIterator struct {
	r      *run
	source cursor
	kind   graph.Kind
	alias  string
}

func newAkaIterator(r *run, source cursor, kind graph.Kind, alias string) *akaIterator {
	return &akaIterator{r: r, source: source, kind: kind, alias: alias}
}

func (it *akaIterator) Next() bool {
	if !it.source.Next() {
		return false
	}
	it.r.aliases[it.alias] = graph.Ref{Kind: it.kind, ID: it.source.ID()}
	return true
}

func (it *akaIterator) ID() graph.ID { return it.source.ID() }
func (it *akaIterator) Err() error { return it.source.Err() }
