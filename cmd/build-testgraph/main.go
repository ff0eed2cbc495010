package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/render"
	"github.com/wbrown/janus-graph/graph/storage"
	"github.com/wbrown/janus-graph/graph/traversal"
)

func main() {
	configType := flag.String("config", "default", "Config type: default, medium, or large")
	output := flag.String("o", "", "output path (overrides the preset)")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	var config storage.TestGraphConfig
	switch *configType {
	case "default":
		config = storage.DefaultGraphConfig()
	case "medium":
		config = storage.MediumGraphConfig()
	case "large":
		config = storage.LargeGraphConfig()
	default:
		fmt.Fprintf(os.Stderr, "Unknown config type: %s (use 'default', 'medium', or 'large')\n", *configType)
		os.Exit(1)
	}
	if *output != "" {
		config.OutputPath = *output
	}
	config.Seed = *seed

	total := config.NumNodes + config.NumNodes*config.EdgesPerNode
	fmt.Printf("Building test graph: %s\n", config.OutputPath)
	fmt.Printf("  Vertices: %d\n", config.NumNodes)
	fmt.Printf("  Edges/vertex: %d\n", config.EdgesPerNode)
	fmt.Printf("  Total entities: %d\n", total)
	fmt.Println()

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetDescription("writing"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	db, err := storage.BuildTestGraph(config, func(done, _ int) {
		if err := bar.Set(done); err != nil {
			logrus.Errorf("failed to update progress bar: %v", err)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build graph: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	_ = bar.Finish()
	fmt.Println()

	if err := printStats(db); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Done! Explore it with:")
	fmt.Printf("   graphdb --path %s traverse vertex 0 out*2 dedup --count\n", config.OutputPath)
}

func printStats(db *storage.Database) error {
	stats, err := db.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Vertices: %d\n", stats.NextVertexID)
	fmt.Printf("Edges:    %d\n", stats.NextEdgeID)

	indexes, err := db.Indexes(graph.Vertex)
	if err != nil {
		return err
	}
	fmt.Println(render.NewTableFormatter().FormatIndexes(indexes))

	buckets, err := db.E(nil).InV().Limit(10000).Agg(traversal.AggFrequency, false)
	if err != nil {
		return err
	}
	if len(buckets) > 5 {
		buckets = buckets[:5]
	}
	fmt.Println("Busiest sources among the first 10,000 edges:")
	fmt.Println(render.NewTableFormatter().FormatBuckets(graph.Vertex, buckets))
	return nil
}
