package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/graph"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "codekg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// sampleGraph: a file that contains two functions, one calling the other and a shared helper
func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.EnsureNode("file:a.py", "a.py", graph.NodeKindFile, graph.MetaOf("path", "a.py"))
	g.EnsureNode("symbol:a.py:main", "main", graph.NodeKindFunction, graph.MetaOf("line", "1", "file", "a.py"))
	g.EnsureNode("symbol:a.py:main_loop", "main_loop", graph.NodeKindFunction, graph.MetaOf("line", "5", "file", "a.py"))
	g.EnsureNode("symbol:any:helper", "helper", graph.NodeKindFunction, graph.Meta{})
	g.EnsureNode("resource:https://x/y", "https://x/y", graph.NodeKindResource, graph.Meta{})

	connect := func(src, dst string, kind graph.EdgeKind, meta graph.Meta) {
		_, err := g.Connect(src, dst, kind, meta)
		require.NoError(t, err)
	}
	connect("file:a.py", "symbol:a.py:main", graph.EdgeKindContains, graph.Meta{})
	connect("file:a.py", "symbol:a.py:main_loop", graph.EdgeKindContains, graph.Meta{})
	connect("symbol:a.py:main", "symbol:a.py:main_loop", graph.EdgeKindCalls, graph.MetaOf("line", "2"))
	connect("symbol:a.py:main", "symbol:a.py:main_loop", graph.EdgeKindCalls, graph.MetaOf("line", "3"))
	connect("symbol:a.py:main_loop", "symbol:any:helper", graph.EdgeKindCalls, graph.MetaOf("line", "6"))
	connect("symbol:a.py:main_loop", "symbol:a.py:main", graph.EdgeKindCalls, graph.MetaOf("line", "7"))
	connect("file:a.py", "resource:https://x/y", graph.EdgeKindReads, graph.MetaOf("line", "8"))
	return g
}

func TestSaveAndLoadGraph(t *testing.T) {
	db := openTestDB(t)
	g := sampleGraph(t)

	scanID, err := db.SaveGraph(g, []string{"./src"})
	require.NoError(t, err)
	assert.NotEmpty(t, scanID)

	loaded, err := db.LoadGraph()
	require.NoError(t, err)

	want, err := json.Marshal(g.Snapshot())
	require.NoError(t, err)
	got, err := json.Marshal(loaded.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestSaveGraph_ReplacesPrevious(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), []string{"a"})
	require.NoError(t, err)

	small := graph.New()
	small.EnsureNode("file:b.go", "b.go", graph.NodeKindFile, graph.Meta{})
	second, err := db.SaveGraph(small, []string{"b", "c"})
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Nodes)
	assert.Equal(t, int64(0), stats.Edges)

	scan, err := db.LatestScan()
	require.NoError(t, err)
	assert.Equal(t, second, scan.ID)
	assert.Equal(t, []string{"b", "c"}, scan.Roots)
	assert.Equal(t, 1, scan.NodeCount)
	assert.False(t, scan.CreatedAt.IsZero())
}

func TestGetNode(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), nil)
	require.NoError(t, err)

	n, err := db.GetNode("symbol:a.py:main")
	require.NoError(t, err)
	assert.Equal(t, "main", n.Name)
	assert.Equal(t, graph.NodeKindFunction, n.Kind)
	assert.True(t, n.Meta.Equal(graph.MetaOf("line", "1", "file", "a.py")))

	_, err = db.GetNode("symbol:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindNodesByPattern(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), nil)
	require.NoError(t, err)

	nodes, err := db.FindNodesByPattern("main", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "symbol:a.py:main", nodes[0].ID)
	assert.Equal(t, "symbol:a.py:main_loop", nodes[1].ID)

	// ids match too
	nodes, err = db.FindNodesByPattern("x/y", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, graph.NodeKindResource, nodes[0].Kind)

	nodes, err = db.FindNodesByPattern("a.py", 1)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Equal(t, "file:a.py", nodes[0].ID)

	byKind, err := db.FindNodesByKind(graph.NodeKindFunction)
	require.NoError(t, err)
	assert.Len(t, byKind, 3)
}

func TestFindNodesInFile(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), nil)
	require.NoError(t, err)

	nodes, err := db.FindNodesInFile("./a.py")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "symbol:a.py:main", nodes[0].ID)
	assert.Equal(t, "symbol:a.py:main_loop", nodes[1].ID)

	// only the stored path may be the longer one
	nodes, err = db.FindNodesInFile("src/a.py")
	require.NoError(t, err)
	assert.Empty(t, nodes)

	nodes, err = db.FindNodesInFile("b.py")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestFindNodesTreatsWildcardsLiterally(t *testing.T) {
	g := graph.New()
	g.EnsureNode("symbol:src/aXb.py:f", "f", graph.NodeKindFunction, graph.MetaOf("file", "src/aXb.py", "line", "1"))
	g.EnsureNode("symbol:src/a_b.py:g", "g", graph.NodeKindFunction, graph.MetaOf("file", "src/a_b.py", "line", "1"))
	g.EnsureNode("symbol:any:load%", "load%", graph.NodeKindFunction, graph.Meta{})
	g.EnsureNode("symbol:any:loader", "loader", graph.NodeKindFunction, graph.Meta{})

	db := openTestDB(t)
	_, err := db.SaveGraph(g, nil)
	require.NoError(t, err)

	nodes, err := db.FindNodesInFile("a_b.py")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "symbol:src/a_b.py:g", nodes[0].ID)

	nodes, err = db.FindNodesByPattern("load%", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "symbol:any:load%", nodes[0].ID)

	nodes, err = db.FindNodesByPattern("a_b", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "symbol:src/a_b.py:g", nodes[0].ID)
}

func TestNeighbors(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), nil)
	require.NoError(t, err)

	out, err := db.Neighbors("symbol:a.py:main", Outgoing)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, nb := range out {
		assert.Equal(t, "symbol:a.py:main_loop", nb.Node.ID)
		assert.Equal(t, graph.EdgeKindCalls, nb.Edge.Kind)
	}
	line, _ := out[0].Edge.Meta.Get("line")
	assert.Equal(t, "2", line)

	in, err := db.Neighbors("symbol:a.py:main_loop", Incoming, graph.EdgeKindContains)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "file:a.py", in[0].Node.ID)

	fileOut, err := db.Neighbors("file:a.py", Outgoing, graph.EdgeKindReads, graph.EdgeKindWrites)
	require.NoError(t, err)
	require.Len(t, fileOut, 1)
	assert.Equal(t, "resource:https://x/y", fileOut[0].Node.ID)
}

func TestNeighborTree(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), nil)
	require.NoError(t, err)

	tree, err := db.NeighborTree("symbol:a.py:main", Outgoing, 0, graph.EdgeKindCalls)
	require.NoError(t, err)

	// main -> main_loop (two call sites collapse) -> {helper, main (cycle, not expanded)}
	require.Len(t, tree, 1)
	loop := tree[0]
	assert.Equal(t, "symbol:a.py:main_loop", loop.Node.ID)
	assert.Equal(t, graph.EdgeKindCalls, loop.Via)
	require.Len(t, loop.Children, 2)
	assert.Equal(t, "symbol:a.py:main", loop.Children[0].Node.ID)
	assert.Empty(t, loop.Children[0].Children)
	assert.Equal(t, "symbol:any:helper", loop.Children[1].Node.ID)

	shallow, err := db.NeighborTree("symbol:a.py:main", Outgoing, 1)
	require.NoError(t, err)
	require.Len(t, shallow, 1)
	assert.Empty(t, shallow[0].Children)

	callers, err := db.NeighborTree("symbol:any:helper", Incoming, 2, graph.EdgeKindCalls)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	require.Len(t, callers[0].Children, 1)
	assert.Equal(t, "symbol:a.py:main", callers[0].Children[0].Node.ID)
}

func TestNeighborTreeSharedSubtrees(t *testing.T) {
	// a ladder of diamonds: each level has two nodes calling both nodes of the next level
	g := graph.New()
	const levels = 24
	id := func(level, side int) string { return fmt.Sprintf("symbol:d.py:n%d_%d", level, side) }
	g.EnsureNode("symbol:d.py:root", "root", graph.NodeKindFunction, graph.Meta{})
	for level := 0; level < levels; level++ {
		for side := 0; side < 2; side++ {
			g.EnsureNode(id(level, side), fmt.Sprintf("n%d_%d", level, side), graph.NodeKindFunction, graph.Meta{})
		}
	}
	connect := func(src, dst string) {
		_, err := g.Connect(src, dst, graph.EdgeKindCalls, graph.Meta{})
		require.NoError(t, err)
	}
	connect("symbol:d.py:root", id(0, 0))
	connect("symbol:d.py:root", id(0, 1))
	for level := 0; level+1 < levels; level++ {
		for from := 0; from < 2; from++ {
			connect(id(level, from), id(level+1, 0))
			connect(id(level, from), id(level+1, 1))
		}
	}

	db := openTestDB(t)
	_, err := db.SaveGraph(g, nil)
	require.NoError(t, err)

	tree, err := db.NeighborTree("symbol:d.py:root", Outgoing, 0)
	require.NoError(t, err)

	var count func(nodes []*TreeNode) int
	count = func(nodes []*TreeNode) int {
		n := len(nodes)
		for _, c := range nodes {
			n += count(c.Children)
		}
		return n
	}
	// every node is expanded once, so each contributes at most its two out-edges
	assert.LessOrEqual(t, count(tree), 4*levels)

	require.Len(t, tree, 2)
	assert.NotEmpty(t, tree[0].Children)
	assert.NotEmpty(t, tree[1].Children, "the second branch lists its children as leaves")
	for _, c := range tree[1].Children {
		assert.Empty(t, c.Children)
	}
}

func TestNeighborTreeReexpandsWithMoreDepth(t *testing.T) {
	// root -> a -> b -> c and root -> b: b is first reached with one level
	// left under a, then again directly with two levels left
	g := graph.New()
	for _, n := range []string{"root", "a", "b", "c"} {
		g.EnsureNode("symbol:r.py:"+n, n, graph.NodeKindFunction, graph.Meta{})
	}
	for _, e := range [][2]string{{"root", "a"}, {"a", "b"}, {"b", "c"}, {"root", "b"}} {
		_, err := g.Connect("symbol:r.py:"+e[0], "symbol:r.py:"+e[1], graph.EdgeKindCalls, graph.Meta{})
		require.NoError(t, err)
	}

	db := openTestDB(t)
	_, err := db.SaveGraph(g, nil)
	require.NoError(t, err)

	tree, err := db.NeighborTree("symbol:r.py:root", Outgoing, 3)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	b := tree[1]
	assert.Equal(t, "symbol:r.py:b", b.Node.ID)
	require.Len(t, b.Children, 1)
	assert.Equal(t, "symbol:r.py:c", b.Children[0].Node.ID)
}

func TestGetStatsAndClear(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveGraph(sampleGraph(t), nil)
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Nodes)
	assert.Equal(t, int64(7), stats.Edges)
	assert.Equal(t, int64(3), stats.NodesByKind["function"])
	assert.Equal(t, int64(4), stats.EdgesByKind["calls"])

	require.NoError(t, db.Clear())
	stats, err = db.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Nodes)
	_, err = db.LatestScan()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"in": Incoming, "UP": Incoming, "out": Outgoing, "": Outgoing} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}
