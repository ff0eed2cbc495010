package traversal

import (
	"github.com/wbrown/janus-graph/graph"
)

// HopOption configures a single hop
type HopOption func(*hopOptions)

type hopOptions struct {
	depth  int
	filter graph.Filter
}

func newHopOptions(opts []HopOption) hopOptions {
	o := hopOptions{depth: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.depth < 1 {
		o.depth = 1
	}
	return o
}

// Depth repeats the hop n times. A filter applies to the last repetition only.
func Depth(n int) HopOption {
	return func(o *hopOptions) {
		o.depth = n
	}
}

// Where adds the exact-match predicate field == value
func Where(field string, value any) HopOption {
	return func(o *hopOptions) {
		if o.filter == nil {
			o.filter = graph.Filter{}
		}
		o.filter[field] = value
	}
}

// Match adds every predicate in f
func Match(f graph.Filter) HopOption {
	return func(o *hopOptions) {
		if o.filter == nil {
			o.filter = graph.Filter{}
		}
		for field, value := range f {
			o.filter[field] = value
		}
	}
}

// filterFor returns the predicate for repetition step of depth
func (o hopOptions) filterFor(step int) graph.Filter {
	if step == o.depth-1 {
		return o.filter
	}
	return nil
}
