package storage

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/wbrown/janus-graph/graph"
)

// TestGraphConfig specifies what kind of fixture graph to build
type TestGraphConfig struct {
	NumNodes     int      // Number of vertices
	EdgesPerNode int      // Outgoing edges per vertex, targets chosen at random
	Colors       []string // Values cycled through the "color" field
	Seed         int64    // Random seed, so fixtures are reproducible
	BatchSize    int      // Entities per transaction
	OutputPath   string   // Where to store the database
	Indexes      [][]string
}

// DefaultGraphConfig returns a small graph for tests and profiling
// Size: 1,000 vertices × 3 edges = 3,000 edges
func DefaultGraphConfig() TestGraphConfig {
	return TestGraphConfig{
		NumNodes:     1000,
		EdgesPerNode: 3,
		Colors:       []string{"red", "green", "blue", "yellow"},
		Seed:         1,
		BatchSize:    500,
		OutputPath:   "testdata/graph_small.db",
		Indexes:      [][]string{{"color"}},
	}
}

// MediumGraphConfig returns a medium-sized graph
// Size: 50,000 vertices × 5 edges = 250,000 edges
func MediumGraphConfig() TestGraphConfig {
	c := DefaultGraphConfig()
	c.NumNodes = 50000
	c.EdgesPerNode = 5
	c.BatchSize = 2000
	c.OutputPath = "testdata/graph_medium.db"
	return c
}

// LargeGraphConfig returns a large graph for stress testing
func LargeGraphConfig() TestGraphConfig {
	c := DefaultGraphConfig()
	c.NumNodes = 500000
	c.EdgesPerNode = 8
	c.BatchSize = 2000
	c.OutputPath = "testdata/graph_large.db"
	return c
}

// Progress is called after every committed batch
type Progress func(done, total int)

// BuildTestGraph creates a pre-populated on-disk database
func BuildTestGraph(config TestGraphConfig, progress Progress) (*Database, error) {
	// Remove existing database
	if err := os.RemoveAll(config.OutputPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing db: %w", err)
	}

	// Create directory if needed
	if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := NewDatabase(config.OutputPath, DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if err := PopulateTestGraph(db, config, progress); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// PopulateTestGraph writes a random graph into db. Vertices carry "name",
// "color" and "rank"; edges carry "weight". Writes are batched so no single
// transaction grows past the store's limits.
func PopulateTestGraph(db *Database, config TestGraphConfig, progress Progress) error {
	rng := rand.New(rand.NewSource(config.Seed))
	batch := config.BatchSize
	if batch <= 0 {
		batch = 1000
	}
	if len(config.Colors) == 0 {
		config.Colors = []string{"none"}
	}

	// Indexes are declared first so inserts maintain them instead of a backfill
	for _, fields := range config.Indexes {
		if _, err := db.CreateIndex(graph.Vertex, fields...); err != nil {
			return fmt.Errorf("failed to create index %v: %w", fields, err)
		}
	}

	total := config.NumNodes + config.NumNodes*config.EdgesPerNode
	done := 0

	ids := make([]graph.ID, 0, config.NumNodes)
	for start := 0; start < config.NumNodes; start += batch {
		end := min(start+batch, config.NumNodes)
		props := make([]graph.Props, 0, end-start)
		for i := start; i < end; i++ {
			props = append(props, graph.Props{
				"name":  fmt.Sprintf("node%d", i),
				"color": config.Colors[i%len(config.Colors)],
				"rank":  int64(rng.Intn(100)),
			})
		}
		nodes, err := db.BulkAddNodes(props)
		if err != nil {
			return fmt.Errorf("failed to add nodes %d-%d: %w", start, end, err)
		}
		for _, n := range nodes {
			ids = append(ids, n.ID())
		}
		done += len(nodes)
		if progress != nil {
			progress(done, total)
		}
	}

	if len(ids) == 0 || config.EdgesPerNode == 0 {
		return nil
	}

	specs := make([]EdgeSpec, 0, batch)
	flush := func() error {
		if len(specs) == 0 {
			return nil
		}
		if _, err := db.BulkAddEdges(specs); err != nil {
			return fmt.Errorf("failed to add %d edges: %w", len(specs), err)
		}
		done += len(specs)
		specs = specs[:0]
		if progress != nil {
			progress(done, total)
		}
		return nil
	}

	for _, source := range ids {
		for j := 0; j < config.EdgesPerNode; j++ {
			specs = append(specs, EdgeSpec{
				Source: source,
				Target: ids[rng.Intn(len(ids))],
				Data:   graph.Props{"weight": int64(rng.Intn(10))},
			})
			if len(specs) >= batch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}
