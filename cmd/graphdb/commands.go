package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/render"
	"github.com/wbrown/janus-graph/graph/storage"
	"github.com/wbrown/janus-graph/graph/traversal"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show counters and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(db *storage.Database) error {
				stats, err := db.Stats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "next vertex id: %d\n", stats.NextVertexID)
				fmt.Fprintf(out, "next edge id:   %d\n", stats.NextEdgeID)
				fmt.Fprintf(out, "bucket size:    %d\n", stats.BucketSize)
				fmt.Fprintf(out, "indexes:        %d\n", stats.Indexes)
				return printIndexes(cmd, db)
			})
		},
	}
}

func printIndexes(cmd *cobra.Command, db *storage.Database) error {
	var all []storage.IndexInfo
	for _, kind := range []graph.Kind{graph.Vertex, graph.Edge} {
		indexes, err := db.Indexes(kind)
		if err != nil {
			return err
		}
		all = append(all, indexes...)
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.NewTableFormatter().FormatIndexes(all))
	return nil
}

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage vertices",
	}
	var id int64
	add := &cobra.Command{
		Use:   "add [field=value...]",
		Short: "Add a vertex",
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseProps(args)
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				var n *storage.Node
				if id >= 0 {
					n, err = db.AddNodeWithID(graph.ID(id), props)
				} else {
					n, err = db.AddNode(props)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n.Ref())
				return nil
			})
		},
	}
	add.Flags().Int64Var(&id, "id", -1, "explicit vertex id")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a vertex and its edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				return db.RemoveNode(id)
			})
		},
	}
	cmd.AddCommand(add, rm, newShowCmd(graph.Vertex))
	return cmd
}

func newEdgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Manage edges",
	}
	add := &cobra.Command{
		Use:   "add <source> <target> [field=value...]",
		Short: "Add an edge between two vertices",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseID(args[0])
			if err != nil {
				return err
			}
			target, err := parseID(args[1])
			if err != nil {
				return err
			}
			props, err := parseProps(args[2:])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				s, err := db.Node(source)
				if err != nil {
					return err
				}
				t, err := db.Node(target)
				if err != nil {
					return err
				}
				e, err := s.AddEdge(t, props)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), e.Ref())
				return nil
			})
		},
	}
	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				return db.RemoveEdge(id)
			})
		},
	}
	cmd.AddCommand(add, rm, newShowCmd(graph.Edge))
	return cmd
}

func newShowCmd(kind graph.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>...",
		Short: fmt.Sprintf("Print %s data", kind),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]graph.ID, len(args))
			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			return withDB(func(db *storage.Database) error {
				return printRows(cmd, db.From(kind, ids...))
			})
		},
	}
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage secondary indexes",
	}
	create := &cobra.Command{
		Use:   "create <vertex|edge> <field>...",
		Short: "Create and backfill an index",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				info, err := db.CreateIndex(kind, args[1:]...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", info)
				return nil
			})
		},
	}
	drop := &cobra.Command{
		Use:   "drop <vertex|edge> <field>...",
		Short: "Drop an index",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				return db.DropIndex(kind, args[1:]...)
			})
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(db *storage.Database) error {
				return printIndexes(cmd, db)
			})
		},
	}
	cmd.AddCommand(create, drop, list)
	return cmd
}

type outputOpts struct {
	limit int
	count bool
	agg   bool
}

func (o *outputOpts) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.limit, "limit", 0, "stop after n results (0 for no limit)")
	cmd.Flags().BoolVar(&o.count, "count", false, "print only the number of results")
	cmd.Flags().BoolVar(&o.agg, "agg", false, "print a frequency histogram of the results")
}

// print runs the terminal selected by the flags
func (o *outputOpts) print(cmd *cobra.Command, it *traversal.Iterator) error {
	if o.limit > 0 {
		it = it.Limit(o.limit)
	}
	out := cmd.OutOrStdout()
	switch {
	case o.count:
		n, err := it.Count()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		return nil
	case o.agg:
		buckets, err := it.Agg(traversal.AggFrequency, false)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, render.NewTableFormatter().FormatBuckets(it.Kind(), buckets))
		return nil
	}
	return printRows(cmd, it)
}

func printRows(cmd *cobra.Command, it *traversal.Iterator) error {
	data := it.IData()
	defer data.Close()

	var rows []render.Row
	for data.Next() {
		rows = append(rows, render.Row{Ref: data.Ref(), Data: data.Data()})
	}
	if err := data.Err(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.RowsString(rows))
	return nil
}

func newQueryCmd() *cobra.Command {
	var o outputOpts
	cmd := &cobra.Command{
		Use:   "query <vertex|edge> [field=value...]",
		Short: "List entities matching every field=value predicate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			filter, err := parseFilter(args[1:])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				it := db.V(filter)
				if kind == graph.Edge {
					it = db.E(filter)
				}
				return o.print(cmd, it)
			})
		},
	}
	o.register(cmd)
	return cmd
}

func newTraverseCmd() *cobra.Command {
	var o outputOpts
	var collect []string
	cmd := &cobra.Command{
		Use:   "traverse <vertex|edge> <id> [step...]",
		Short: "Walk the graph from an entity",
		Long: `Walk the graph from an entity through a chain of steps:

  inV outV bothV inE outE bothE   single-slot hops
  in out both                     vertex to vertex through edges
  step*N                          repeat a hop N times
  step(field=value,...)           filter the hop's results
  dedup  limit=N  aka=name        shaping and naming`,
		Example: `  graphdb traverse vertex 0 out*2 dedup
  graphdb traverse vertex 0 aka=me outE aka=e outV(color=red) --collect me,e`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := graph.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withDB(func(db *storage.Database) error {
				it, err := applySteps(db.From(kind, id), args[2:])
				if err != nil {
					return err
				}
				if len(collect) > 0 {
					return printCollected(cmd, it, collect)
				}
				return o.print(cmd, it)
			})
		},
	}
	o.register(cmd)
	cmd.Flags().StringSliceVar(&collect, "collect", nil, "print the named entities alongside each result")
	return cmd
}

func printCollected(cmd *cobra.Command, it *traversal.Iterator, aliases []string) error {
	rows, err := it.Collect(aliases...)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, row := range rows {
		for i, ref := range row {
			if i > 0 {
				fmt.Fprint(out, " ")
			}
			fmt.Fprint(out, ref)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func newGCCmd() *cobra.Command {
	var ratio float64
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Reclaim space in the store's value log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(db *storage.Database) error {
				gc, ok := db.Store().(interface{ RunGC(float64) error })
				if !ok {
					return fmt.Errorf("store %T does not support gc", db.Store())
				}
				return gc.RunGC(ratio)
			})
		},
	}
	cmd.Flags().Float64Var(&ratio, "discard-ratio", 0.5, "rewrite value log files with at least this fraction of stale data")
	return cmd
}
