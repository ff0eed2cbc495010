package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/render"
	"github.com/wbrown/janus-graph/graph/storage"
	"github.com/wbrown/janus-graph/graph/traversal"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Build a small social graph in a scratch store and run sample traversals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := storage.NewMemoryDatabase(c.Options(handler()))
			if err != nil {
				return err
			}
			defer db.Close()
			return runDemo(cmd, db)
		},
	}
}

func runDemo(cmd *cobra.Command, db *storage.Database) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Janus Graph Demo ===")
	fmt.Fprintln(out, "\nAdding test data...")

	people := map[string]*storage.Node{}
	for _, p := range []graph.Props{
		{"name": "Alice", "age": int64(30), "city": "New York"},
		{"name": "Bob", "age": int64(25), "city": "Boston"},
		{"name": "Charlie", "age": int64(35), "city": "New York"},
		{"name": "Dana", "age": int64(41), "city": "Chicago"},
	} {
		n, err := db.AddNode(p)
		if err != nil {
			return err
		}
		people[p["name"].(string)] = n
	}

	for _, f := range []struct {
		from, to string
		since    int64
	}{
		{"Alice", "Bob", 2015},
		{"Alice", "Charlie", 2018},
		{"Bob", "Charlie", 2020},
		{"Charlie", "Dana", 2012},
	} {
		if _, err := people[f.from].AddEdge(people[f.to], graph.Props{"rel": "friend", "since": f.since}); err != nil {
			return err
		}
	}

	if _, err := db.CreateIndex(graph.Vertex, "city"); err != nil {
		return err
	}

	alice := people["Alice"]
	demos := []struct {
		title string
		it    *traversal.Iterator
	}{
		{"Everyone", db.V(nil)},
		{"People in New York", db.V(graph.Filter{"city": "New York"})},
		{"Alice's friends", alice.Out()},
		{"Friends since 2018", alice.Out(traversal.Where("since", int64(2018)))},
		{"Friends of friends", alice.Out(traversal.Depth(2)).Dedup()},
		{"Everyone within two hops", alice.Both(traversal.Depth(2)).Dedup()},
	}
	for _, d := range demos {
		fmt.Fprintf(out, "\n%s: %s\n\n", d.title, d.it)
		if err := printRows(cmd, d.it); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nMost befriended\n\n")
	buckets, err := db.V(nil).OutV().Agg(traversal.AggFrequency, false)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, render.NewTableFormatter().FormatBuckets(graph.Vertex, buckets))
	return nil
}
