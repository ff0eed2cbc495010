package storage

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/janus-graph/graph/annotations"
	"github.com/wbrown/janus-graph/graph/codec"
	"github.com/wbrown/janus-graph/graph/traversal"
)

// DefaultBucketSize is the number of ids grouped under one bucket key
const DefaultBucketSize = 1000

// Options configures a Database
type Options struct {
	// BucketSize groups entity ids for full enumeration. It is fixed when the
	// database is first created; later opens use the persisted value.
	BucketSize uint64

	// CompressThreshold is the encoded payload size above which property
	// bags are zstd-compressed. Zero disables compression.
	CompressThreshold int

	// CombinedHopFilter selects where Out/In/Both apply their predicate
	CombinedHopFilter traversal.HopFilterMode

	// DisableLookupCache turns off the per-traversal adjacency cache
	DisableLookupCache bool

	// Logger receives operational logs. Defaults to a warn-level logger on stderr.
	Logger logrus.FieldLogger

	// Handler receives engine annotation events. Nil disables them.
	Handler annotations.Handler
}

// DefaultOptions returns the default database options
func DefaultOptions() Options {
	return Options{
		BucketSize:        DefaultBucketSize,
		CompressThreshold: codec.DefaultCompressThreshold,
		CombinedHopFilter: traversal.FilterEdges,
	}
}

func (o Options) withDefaults() Options {
	if o.BucketSize == 0 {
		o.BucketSize = DefaultBucketSize
	}
	if o.CompressThreshold < 0 {
		o.CompressThreshold = 0
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.WarnLevel)
		o.Logger = l
	}
	return o
}
