package traversal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/kv"
	"github.com/wbrown/janus-graph/graph/storage"
	"github.com/wbrown/janus-graph/graph/traversal"
)

func newDB(t *testing.T) *storage.Database {
	t.Helper()
	store, err := kv.NewBadgerStore(kv.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	db, err := storage.Open(store, storage.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func fixture(t *testing.T, nodes int) *storage.Database {
	t.Helper()
	db := newDB(t)
	config := storage.DefaultGraphConfig()
	config.NumNodes = nodes
	require.NoError(t, storage.PopulateTestGraph(db, config, nil))
	return db
}

func TestLimitCount(t *testing.T) {
	db := fixture(t, 60)

	chains := map[string]*traversal.Iterator{
		"V":         db.V(nil),
		"V.outV":    db.V(nil).OutV(),
		"red.out":   db.V(graph.Filter{"color": "red"}).Out(),
		"E.inV":     db.E(nil).InV(),
		"both.both": db.From(graph.Vertex, 0).Both(traversal.Depth(2)),
	}
	for name, it := range chains {
		total, err := it.Count()
		require.NoError(t, err, name)
		for _, k := range []int{0, 1, 5, total, total + 10} {
			n, err := it.Limit(k).Count()
			require.NoError(t, err, name)
			assert.Equal(t, min(k, total), n, "%s limit %d", name, k)
		}
	}
}

func TestBothOnCycle(t *testing.T) {
	db := newDB(t)
	nodes := make([]*storage.Node, 4)
	for i := range nodes {
		n, err := db.AddNode(graph.Props{"i": int64(i)})
		require.NoError(t, err)
		nodes[i] = n
	}
	for i := range nodes {
		_, err := nodes[i].AddEdge(nodes[(i+1)%len(nodes)], nil)
		require.NoError(t, err)
	}
	_, err := nodes[0].AddEdge(nodes[0], nil)
	require.NoError(t, err)

	for _, n := range nodes {
		ids, err := n.Both().IDs()
		require.NoError(t, err)
		assert.NotContains(t, ids, n.ID())
		assert.Len(t, ids, 2)
	}

	// Two steps around a 4-cycle come back to the origin through the other side
	ids, err := nodes[0].Both(traversal.Depth(2)).Dedup().IDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []graph.ID{nodes[0].ID(), nodes[2].ID()}, ids)
}

func TestUpdateOverIndexedSource(t *testing.T) {
	db := fixture(t, 40)

	red := graph.Filter{"color": "red"}
	want, err := db.V(red).Count()
	require.NoError(t, err)
	require.Greater(t, want, 0)

	n, err := db.V(red).Update(graph.Props{"color": "blue", "touched": true})
	require.NoError(t, err)
	assert.Equal(t, want, n)

	n, err = db.V(red).Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.V(graph.Filter{"touched": true}).Count()
	require.NoError(t, err)
	assert.Equal(t, want, n)
}

func TestRemoveTerminal(t *testing.T) {
	db := fixture(t, 30)

	before, err := db.E(nil).Count()
	require.NoError(t, err)
	weighted, err := db.E(graph.Filter{"weight": int64(0)}).Count()
	require.NoError(t, err)

	n, err := db.E(graph.Filter{"weight": int64(0)}).Remove()
	require.NoError(t, err)
	assert.Equal(t, weighted, n)

	after, err := db.E(nil).Count()
	require.NoError(t, err)
	assert.Equal(t, before-weighted, after)

	n, err = db.V(graph.Filter{"color": "green"}).Remove()
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	// Removing a vertex takes its edges with it
	rest, err := db.V(nil).OutE().OutV().Dedup().IDs()
	require.NoError(t, err)
	for _, id := range rest {
		data, err := db.Data(graph.V(id))
		require.NoError(t, err)
		assert.NotEqual(t, "green", data["color"])
	}
}

func TestRemoveRepeatedIDs(t *testing.T) {
	build := func(t *testing.T) (*storage.Database, []*storage.Node) {
		db := newDB(t)
		nodes := make([]*storage.Node, 3)
		for i := range nodes {
			n, err := db.AddNode(graph.Props{"i": int64(i)})
			require.NoError(t, err)
			nodes[i] = n
		}
		for _, pair := range [][2]int{{0, 0}, {0, 1}, {2, 1}} {
			_, err := nodes[pair[0]].AddEdge(nodes[pair[1]], nil)
			require.NoError(t, err)
		}
		return db, nodes
	}

	t.Run("self loop", func(t *testing.T) {
		db, nodes := build(t)
		total, err := nodes[0].BothE().Count()
		require.NoError(t, err)
		assert.Equal(t, 3, total, "the loop is produced from both sides")

		n, err := nodes[0].BothE().Remove()
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := db.E(nil).Count()
		require.NoError(t, err)
		assert.Equal(t, 1, left)
	})

	t.Run("shared target", func(t *testing.T) {
		db, nodes := build(t)
		n, err := db.From(graph.Vertex, nodes[0].ID(), nodes[2].ID()).Out().Remove()
		require.NoError(t, err)
		assert.Equal(t, 2, n, "the loop target and the shared target")

		ids, err := db.V(nil).IDs()
		require.NoError(t, err)
		assert.Equal(t, []graph.ID{nodes[2].ID()}, ids)
		left, err := db.E(nil).Count()
		require.NoError(t, err)
		assert.Equal(t, 0, left)
	})
}

func TestCollectAlongPath(t *testing.T) {
	db := newDB(t)
	alice, err := db.AddNode(graph.Props{"name": "alice"})
	require.NoError(t, err)
	bob, err := db.AddNode(graph.Props{"name": "bob"})
	require.NoError(t, err)
	carol, err := db.AddNode(graph.Props{"name": "carol"})
	require.NoError(t, err)

	knows1, err := alice.AddEdge(bob, graph.Props{"rel": "knows"})
	require.NoError(t, err)
	_, err = bob.AddEdge(carol, graph.Props{"rel": "knows"})
	require.NoError(t, err)

	rows, err := alice.Traverse().Aka("a").OutE().Aka("e").OutV().Aka("b").OutV().Collect("a", "e", "b")
	require.NoError(t, err)
	assert.Equal(t, [][]graph.Ref{{alice.Ref(), knows1.Ref(), bob.Ref()}}, rows)
}

func TestIDataOverStore(t *testing.T) {
	db := fixture(t, 20)

	it := db.V(graph.Filter{"color": "blue"}).IData()
	defer it.Close()

	n := 0
	for it.Next() {
		assert.Equal(t, "blue", it.Data()["color"])
		n++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 5, n)
}
