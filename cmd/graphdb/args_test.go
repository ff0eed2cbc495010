package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/storage"
)

func TestParseProps(t *testing.T) {
	props, err := parseProps([]string{"name=alice", "age=30", "score=1.5", "ok=true", `zip="02139"`, "gone=nil", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, graph.Props{
		"name":  "alice",
		"age":   int64(30),
		"score": 1.5,
		"ok":    true,
		"zip":   "02139",
		"gone":  nil,
		"eq":    "a=b",
	}, props)

	_, err = parseProps([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseProps([]string{"=x"})
	assert.Error(t, err)
}

func TestApplySteps(t *testing.T) {
	db, err := storage.NewMemoryDatabase(storage.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	a, err := db.AddNode(graph.Props{"name": "a"})
	require.NoError(t, err)
	b, err := db.AddNode(graph.Props{"name": "b", "color": "red"})
	require.NoError(t, err)
	c, err := db.AddNode(graph.Props{"name": "c", "color": "blue"})
	require.NoError(t, err)
	_, err = a.AddEdge(b, nil)
	require.NoError(t, err)
	_, err = a.AddEdge(c, nil)
	require.NoError(t, err)
	_, err = b.AddEdge(c, nil)
	require.NoError(t, err)

	for _, tc := range []struct {
		steps []string
		path  string
		want  []graph.ID
	}{
		{[]string{"outV(color=red)"}, "vertex[0].outV", []graph.ID{b.ID()}},
		{[]string{"outV*2"}, "vertex[0].outV(2)", []graph.ID{c.ID()}},
		{[]string{"outV", "outV", "dedup"}, "vertex[0].outV.outV.dedup", []graph.ID{c.ID()}},
		{[]string{"outE", "outV", "limit=1"}, "vertex[0].outE.outV.limit(1)", []graph.ID{b.ID()}},
		{[]string{"aka=x", "out(color=blue)"}, "vertex[0].aka(x).out", nil},
	} {
		it, err := applySteps(db.From(graph.Vertex, a.ID()), tc.steps)
		require.NoError(t, err, tc.steps)
		assert.Equal(t, tc.path, it.String())
		if tc.want != nil {
			ids, err := it.IDs()
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids, tc.steps)
		}
	}

	for _, bad := range []string{"sideways", "limit=x", "outV*0", "outV(color=red", "outV(nope)"} {
		_, err := applyStep(db.From(graph.Vertex, a.ID()), bad)
		assert.Error(t, err, bad)
	}
}
