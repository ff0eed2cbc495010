package traversal

import (
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hashicorp/go-multierror"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/annotations"
)

// each runs the chain and calls fn for every produced id
func (it *Iterator) each(terminal string, fn func(r *run, id graph.ID) error) (int, error) {
	start := time.Now()
	r, c, err := it.open()
	if err != nil {
		return 0, err
	}
	defer r.reader.Close()

	n := 0
	for c.Next() {
		if err := fn(r, c.ID()); err != nil {
			return n, err
		}
		n++
	}
	if err := c.Err(); err != nil {
		return n, err
	}

	if it.cfg.Annotations.Enabled() {
		hits, misses := r.cache.Stats()
		it.cfg.Annotations.AddTiming(annotations.TraversalComplete, start, map[string]interface{}{
			"terminal":     terminal,
			"path":         it.String(),
			"count":        n,
			"cache.hits":   hits,
			"cache.misses": misses,
		})
	}
	return n, nil
}

// Count returns the number of ids the chain produces
func (it *Iterator) Count() (int, error) {
	return it.each("count", func(*run, graph.ID) error { return nil })
}

// IDs returns the produced ids in order
func (it *Iterator) IDs() ([]graph.ID, error) {
	var ids []graph.ID
	_, err := it.each("ids", func(_ *run, id graph.ID) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Refs returns the produced entities in order
func (it *Iterator) Refs() ([]graph.Ref, error) {
	ids, err := it.IDs()
	if err != nil {
		return nil, err
	}
	refs := make([]graph.Ref, len(ids))
	for i, id := range ids {
		refs[i] = graph.Ref{Kind: it.kind, ID: id}
	}
	return refs, nil
}

// Data returns the property bag of every produced entity
func (it *Iterator) Data() ([]graph.Props, error) {
	var out []graph.Props
	_, err := it.each("data", func(r *run, id graph.ID) error {
		data, err := r.reader.Data(graph.Ref{Kind: it.kind, ID: id})
		if err != nil {
			return err
		}
		out = append(out, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IData returns a lazy iterator over the produced entities' data. It holds
// a read snapshot open until closed.
func (it *Iterator) IData() *DataIterator {
	r, c, err := it.open()
	if err != nil {
		return &DataIterator{err: err}
	}
	return &DataIterator{r: r, source: c, kind: it.kind}
}

// Remove deletes every distinct produced entity, each in its own transaction.
// Ids are resolved before the first deletion, and an id produced more than
// once is removed once. It returns the number removed; every failure is
// reported.
func (it *Iterator) Remove() (int, error) {
	return it.mutate(func(ref graph.Ref) error {
		return it.backend.RemoveEntity(ref)
	})
}

// Update merges changes into every produced entity, each in its own
// transaction. Ids are resolved before the first write, so writes cannot feed
// back into an index-backed source.
func (it *Iterator) Update(changes graph.Props) (int, error) {
	return it.mutate(func(ref graph.Ref) error {
		return it.backend.UpdateEntity(ref, changes)
	})
}

// mutate applies fn once per distinct produced ref
func (it *Iterator) mutate(fn func(ref graph.Ref) error) (int, error) {
	refs, err := it.Refs()
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	seen := roaring64.New()
	done := 0
	for _, ref := range refs {
		if !seen.CheckedAdd(ref.ID) {
			continue
		}
		if err := fn(ref); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", ref, err))
			continue
		}
		done++
	}
	return done, result.ErrorOrNil()
}

// Collect returns, for every produced id, the entities bound to aliases at
// the moment that id was produced
func (it *Iterator) Collect(aliases ...string) ([][]graph.Ref, error) {
	for _, alias := range aliases {
		if !it.hasAlias(alias) {
			return nil, fmt.Errorf("%w: %q", graph.ErrUnknownAlias, alias)
		}
	}

	var rows [][]graph.Ref
	_, err := it.each("collect", func(r *run, _ graph.ID) error {
		row := make([]graph.Ref, len(aliases))
		for i, alias := range aliases {
			ref, ok := r.aliases[alias]
			if !ok {
				return fmt.Errorf("%w: %q not bound", graph.ErrUnknownAlias, alias)
			}
			row[i] = ref
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (it *Iterator) hasAlias(alias string) bool {
	for _, a := range it.aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// AggMode selects the histogram statistic
type AggMode int

const (
	// AggFrequency reports raw occurrence counts
	AggFrequency AggMode = iota
	// AggRelative reports each count as a fraction of all produced ids
	AggRelative
)

// Bucket is one histogram entry
type Bucket struct {
	ID        graph.ID
	Count     int
	Frequency float64
}

// Agg builds a histogram of the produced ids sorted by count, ties broken by
// ascending id
func (it *Iterator) Agg(mode AggMode, ascending bool) ([]Bucket, error) {
	counts := make(map[graph.ID]int)
	total, err := it.each("agg", func(_ *run, id graph.ID) error {
		counts[id]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(counts))
	for id, n := range counts {
		b := Bucket{ID: id, Count: n, Frequency: float64(n)}
		if mode == AggRelative {
			b.Frequency = float64(n) / float64(total)
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			if ascending {
				return buckets[i].Count < buckets[j].Count
			}
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].ID < buckets[j].ID
	})
	return buckets, nil
}

// DataIterator lazily loads the data of a traversal's entities
type DataIterator struct {
	r      *run
	source cursor
	kind   graph.Kind
	ref    graph.Ref
	data   graph.Props
	err    error
	closed bool
}

// Next advances to the next entity
func (it *DataIterator) Next() bool {
	if it.err != nil || it.closed || it.source == nil {
		return false
	}
	if !it.source.Next() {
		it.err = it.source.Err()
		return false
	}
	it.ref = graph.Ref{Kind: it.kind, ID: it.source.ID()}
	it.data, it.err = it.r.reader.Data(it.ref)
	return it.err == nil
}

// Ref returns the current entity
func (it *DataIterator) Ref() graph.Ref {
	return it.ref
}

// Data returns the current entity's data
func (it *DataIterator) Data() graph.Props {
	return it.data
}

// Err returns the error that stopped iteration, if any
func (it *DataIterator) Err() error {
	return it.err
}

// Close releases the read snapshot
func (it *DataIterator) Close() error {
	if it.closed || it.r == nil {
		it.closed = true
		return nil
	}
	it.closed = true
	return it.r.reader.Close()
}
