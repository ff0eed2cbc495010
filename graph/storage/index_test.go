package storage

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/annotations"
	"github.com/wbrown/janus-graph/graph/kv"
	"github.com/wbrown/janus-graph/graph/traversal"
)

func TestIndexRoundTrip(t *testing.T) {
	rec := annotations.NewRecorder()
	opts := DefaultOptions()
	opts.Handler = rec.Add
	db := newBadgerDB(t, opts)

	colors := []string{"red", "green", "blue"}
	rng := rand.New(rand.NewSource(7))
	props := make([]graph.Props, 200)
	want := 0
	for i := range props {
		c := colors[rng.Intn(len(colors))]
		if c == "red" {
			want++
		}
		props[i] = graph.Props{"color": c, "n": int64(i)}
	}
	_, err := db.BulkAddNodes(props)
	require.NoError(t, err)

	red := graph.Filter{"color": "red"}
	scanned, err := db.V(red).Count()
	require.NoError(t, err)
	assert.Equal(t, want, scanned)
	assert.Len(t, rec.Named(annotations.QueryScanned), 1)

	info, err := db.CreateIndex(graph.Vertex, "color")
	require.NoError(t, err)
	assert.Equal(t, []string{"color"}, info.Fields)
	assert.Len(t, rec.Named(annotations.IndexBackfilled), 1)

	indexed, err := db.V(red).Count()
	require.NoError(t, err)
	assert.Equal(t, want, indexed)
	assert.Len(t, rec.Named(annotations.QueryIndexed), 1)

	// New writes maintain the index
	_, err = db.AddNode(graph.Props{"color": "red"})
	require.NoError(t, err)
	indexed, err = db.V(red).Count()
	require.NoError(t, err)
	assert.Equal(t, want+1, indexed)

	require.NoError(t, db.DropIndex(graph.Vertex, "color"))
	scanned, err = db.V(red).Count()
	require.NoError(t, err)
	assert.Equal(t, want+1, scanned)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.Indexes)
}

func TestIndexLifecycleErrors(t *testing.T) {
	eachDB(t, func(t *testing.T, db *Database) {
		_, err := db.CreateIndex(graph.Vertex, "b", "a")
		require.NoError(t, err)

		_, err = db.CreateIndex(graph.Vertex, "a", "b")
		assert.ErrorIs(t, err, graph.ErrIndexAlreadyExists)
		assert.ErrorIs(t, err, graph.ErrIndexCreationFailed)

		// The same fields on the other kind are a different index
		_, err = db.CreateIndex(graph.Edge, "a", "b")
		require.NoError(t, err)

		err = db.DropIndex(graph.Vertex, "nope")
		assert.ErrorIs(t, err, graph.ErrIndexRemovalFailed)

		indexes, err := db.Indexes(graph.Vertex)
		require.NoError(t, err)
		require.Len(t, indexes, 1)
		assert.Equal(t, []string{"a", "b"}, indexes[0].Fields)

		require.NoError(t, db.DropIndex(graph.Vertex, "a", "b"))
		second, err := db.CreateIndex(graph.Vertex, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), second.ID, "index ids are never reused")

		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), stats.Indexes)
	})
}

func TestIndexMaintenanceOnUpdate(t *testing.T) {
	eachDB(t, func(t *testing.T, db *Database) {
		_, err := db.CreateIndex(graph.Vertex, "color")
		require.NoError(t, err)

		n, err := db.AddNode(graph.Props{"color": "red"})
		require.NoError(t, err)

		count := func(f graph.Filter) int {
			c, err := db.V(f).Count()
			require.NoError(t, err)
			return c
		}

		require.NoError(t, n.Set("color", "blue"))
		assert.Equal(t, 0, count(graph.Filter{"color": "red"}))
		assert.Equal(t, 1, count(graph.Filter{"color": "blue"}))

		// A missing field is indexed as nil
		require.NoError(t, n.Unset("color"))
		assert.Equal(t, 0, count(graph.Filter{"color": "blue"}))
		assert.Equal(t, 1, count(graph.Filter{"color": nil}))

		require.NoError(t, n.Remove())
		assert.Equal(t, 0, count(graph.Filter{"color": nil}))

		// Emptied postings lists are deleted
		err = db.View(func(tx *Tx) error {
			info, ok, err := tx.lookupIndex(graph.Vertex, []string{"color"})
			require.NoError(t, err)
			require.True(t, ok)
			n := 0
			err = tx.txn.Iterate(postingsPrefix(info.ID), func(_, _ []byte) error {
				n++
				return nil
			})
			assert.Zero(t, n)
			return err
		})
		require.NoError(t, err)
	})
}

// buildStar creates a hub with edges to spokes, reds of which are red, plus
// extra red vertices that are not adjacent to the hub
func buildStar(t *testing.T, db *Database, spokes, reds, extraReds int) *Node {
	t.Helper()
	hub, err := db.AddNode(graph.Props{"name": "hub"})
	require.NoError(t, err)
	for i := 0; i < spokes; i++ {
		color := "grey"
		if i < reds {
			color = "red"
		}
		spoke, err := db.AddNode(graph.Props{"name": fmt.Sprintf("spoke%d", i), "color": color})
		require.NoError(t, err)
		_, err = hub.AddEdge(spoke, graph.Props{"color": color})
		require.NoError(t, err)
	}
	for i := 0; i < extraReds; i++ {
		_, err := db.AddNode(graph.Props{"color": "red"})
		require.NoError(t, err)
	}
	return hub
}

func TestNeighborsIndexVersusScan(t *testing.T) {
	for _, tc := range []struct {
		name      string
		extraReds int
		event     string
	}{
		{"index", 0, annotations.NeighborsIndexed},
		{"scan", 50, annotations.NeighborsScanned},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := annotations.NewRecorder()
			opts := DefaultOptions()
			opts.Handler = rec.Add
			db := newMemDB(t, opts)

			hub := buildStar(t, db, 10, 3, tc.extraReds)
			expected, err := hub.OutV(traversal.Where("color", "red")).IDs()
			require.NoError(t, err)
			require.Len(t, expected, 3)

			_, err = db.CreateIndex(graph.Vertex, "color")
			require.NoError(t, err)
			rec.Reset()

			got, err := hub.OutV(traversal.Where("color", "red")).IDs()
			require.NoError(t, err)
			assert.ElementsMatch(t, expected, got)

			events := rec.Named(tc.event)
			require.Len(t, events, 1)
			assert.Equal(t, "outV", events[0].Data["slot"])
			assert.Equal(t, 3, events[0].Data["result"])
		})
	}
}

func TestNeighborsIndexConfirmsAdjacency(t *testing.T) {
	db := newMemDB(t, DefaultOptions())
	hub := buildStar(t, db, 10, 2, 3)
	_, err := db.CreateIndex(graph.Vertex, "color")
	require.NoError(t, err)

	// 5 red vertices exist, only 2 are the hub's neighbors
	ids, err := db.Neighbors(hub.Ref(), slotOutV, graph.Filter{"color": "red"}, nil)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	n, err := db.V(graph.Filter{"color": "red"}).Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestNeighborsUsesCache(t *testing.T) {
	db := newMemDB(t, DefaultOptions())
	hub := buildStar(t, db, 4, 0, 0)

	cache := graph.NewLookupCache()
	for i := 0; i < 3; i++ {
		ids, err := db.Neighbors(hub.Ref(), slotOutV, nil, cache)
		require.NoError(t, err)
		assert.Len(t, ids, 4)
	}
	hits, misses := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	// A nil cache is always valid
	ids, err := db.Neighbors(hub.Ref(), slotOutV, nil, nil)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestFixtureGraph(t *testing.T) {
	db := newMemDB(t, DefaultOptions())
	config := DefaultGraphConfig()
	config.NumNodes = 120
	config.BatchSize = 50

	var calls, last int
	err := PopulateTestGraph(db, config, func(done, total int) {
		calls++
		last = done
		assert.LessOrEqual(t, done, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 120+120*config.EdgesPerNode, last)
	assert.Greater(t, calls, 1)
	checkInvariants(t, db)

	// Index and scan agree on every color
	for _, c := range config.Colors {
		f := graph.Filter{"color": c}
		indexed, err := db.V(f).Count()
		require.NoError(t, err)
		assert.Equal(t, 30, indexed)
	}
}

// postingsOf returns the total number of ids filed under index and the
// number of distinct postings lists holding them
func postingsOf(t *testing.T, db *Database, info IndexInfo) (ids, lists int) {
	t.Helper()
	err := db.View(func(tx *Tx) error {
		return tx.txn.Iterate(postingsPrefix(info.ID), func(_, value []byte) error {
			l, err := kv.DecodeIDs(value)
			if err != nil {
				return err
			}
			ids += len(l)
			lists++
			return nil
		})
	})
	require.NoError(t, err)
	return ids, lists
}

func TestIndexValueTypes(t *testing.T) {
	values := map[string]any{
		"string":    "red",
		"int":       int64(-7),
		"uint":      uint64(1 << 63),
		"float":     2.5,
		"neg zero":  math.Copysign(0, -1),
		"nan":       math.NaN(),
		"bool":      true,
		"nil":       nil,
		"bytes":     []byte("hi"),
		"time":      time.Date(2450, 7, 1, 9, 30, 0, 5, time.UTC),
		"list":      []any{"a", int64(1), []byte{2}},
		"map":       map[string]any{"k": []any{true, 1.5}},
		"old time":  time.Date(1200, 1, 1, 0, 0, 0, 0, time.UTC),
		"small int": 3,
	}
	for name, value := range values {
		t.Run(name, func(t *testing.T) {
			eachDB(t, func(t *testing.T, db *Database) {
				before, err := db.BulkAddNodes([]graph.Props{{"v": value}, {"v": value}})
				require.NoError(t, err)

				info, err := db.CreateIndex(graph.Vertex, "v")
				require.NoError(t, err)
				after, err := db.AddNode(graph.Props{"v": value})
				require.NoError(t, err)

				// Backfilled and inserted entities share one postings list
				ids, lists := postingsOf(t, db, info)
				assert.Equal(t, 3, ids)
				assert.Equal(t, 1, lists)

				match := graph.Filter{"v": value}
				n, err := db.V(match).Count()
				require.NoError(t, err)
				assert.Equal(t, 3, n)

				// Updates refile every entity, leaving nothing behind
				for _, node := range append(before, after) {
					require.NoError(t, db.UpdateData(node.Ref(), graph.Props{"v": "zzz"}))
				}
				ids, lists = postingsOf(t, db, info)
				assert.Equal(t, 3, ids)
				assert.Equal(t, 1, lists)
				n, err = db.V(match).Count()
				require.NoError(t, err)
				assert.Equal(t, 0, n)

				require.NoError(t, before[0].Remove())
				ids, _ = postingsOf(t, db, info)
				assert.Equal(t, 2, ids)

				// The scan path agrees with the index path
				require.NoError(t, db.UpdateData(after.Ref(), graph.Props{"v": value}))
				indexed, err := db.V(match).Count()
				require.NoError(t, err)
				require.NoError(t, db.DropIndex(graph.Vertex, "v"))
				scanned, err := db.V(match).Count()
				require.NoError(t, err)
				assert.Equal(t, 1, indexed)
				assert.Equal(t, indexed, scanned)
				checkInvariants(t, db)
			})
		})
	}
}

func TestNeighborsParallelEdges(t *testing.T) {
	eachDB(t, func(t *testing.T, db *Database) {
		nodes := addNodes(t, db, "a", "b")
		a, b := nodes[0], nodes[1]
		require.NoError(t, db.UpdateData(b.Ref(), graph.Props{"color": "red"}))
		for i := 0; i < 2; i++ {
			_, err := a.AddEdge(b, nil)
			require.NoError(t, err)
		}

		out := graph.Slot{Target: graph.Vertex, Dir: graph.Out}
		red := graph.Filter{"color": "red"}
		scanned, err := db.Neighbors(a.Ref(), out, red, nil)
		require.NoError(t, err)
		assert.Equal(t, []graph.ID{b.ID(), b.ID()}, scanned)

		_, err = db.CreateIndex(graph.Vertex, "color")
		require.NoError(t, err)
		indexed, err := db.Neighbors(a.Ref(), out, red, nil)
		require.NoError(t, err)
		assert.Equal(t, []graph.ID{b.ID()}, indexed)

		n, err := db.From(graph.Vertex, a.ID()).OutV(traversal.Where("color", "red")).Dedup().Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
