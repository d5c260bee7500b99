package impact

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/storage"
)

// newTestAnalyzer stores a small call chain: main -> handler -> fetch (by name) -> get
func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	g := graph.New()
	g.EnsureNode("file:a.py", "a.py", graph.NodeKindFile, graph.MetaOf("path", "a.py"))
	g.EnsureNode("symbol:a.py:fetch", "fetch", graph.NodeKindFunction, graph.MetaOf("file", "a.py", "line", "1"))
	g.EnsureNode("symbol:a.py:handler", "handler", graph.NodeKindFunction, graph.MetaOf("file", "a.py", "line", "10"))
	g.EnsureNode("symbol:b.py:main", "main", graph.NodeKindFunction, graph.MetaOf("file", "b.py", "line", "1"))
	g.EnsureNode("symbol:any:fetch", "fetch", graph.NodeKindFunction, graph.Meta{})
	g.EnsureNode("symbol:any:get", "get", graph.NodeKindFunction, graph.Meta{})

	connect := func(src, dst string) {
		_, err := g.Connect(src, dst, graph.EdgeKindCalls, graph.Meta{})
		require.NoError(t, err)
	}
	connect("symbol:a.py:handler", "symbol:any:fetch")
	connect("symbol:b.py:main", "symbol:a.py:handler")
	connect("symbol:a.py:fetch", "symbol:any:get")
	_, err := g.Connect("file:a.py", "symbol:a.py:fetch", graph.EdgeKindContains, graph.Meta{})
	require.NoError(t, err)

	db, err := storage.Open(filepath.Join(t.TempDir(), "impact.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.SaveGraph(g, []string{"."})
	require.NoError(t, err)
	return NewAnalyzer(db)
}

func ids(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestResolve(t *testing.T) {
	a := newTestAnalyzer(t)

	n, err := a.Resolve("symbol:b.py:main")
	require.NoError(t, err)
	assert.Equal(t, "main", n.Name)

	n, err = a.Resolve("handler")
	require.NoError(t, err)
	assert.Equal(t, "symbol:a.py:handler", n.ID)

	n, err = a.Resolve("hand")
	require.NoError(t, err)
	assert.Equal(t, "symbol:a.py:handler", n.ID)

	_, err = a.Resolve("fetch")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = a.Resolve("nothing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalyze(t *testing.T) {
	a := newTestAnalyzer(t)

	r, err := a.Analyze("symbol:a.py:fetch", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol:a.py:handler"}, ids(r.DirectCallers))
	assert.Equal(t, []string{"symbol:b.py:main"}, ids(r.IndirectCallers))
	assert.Equal(t, []string{"symbol:any:get"}, ids(r.DirectCallees))
	assert.Empty(t, r.IndirectCallees)

	r, err = a.Analyze("symbol:a.py:fetch", 1, 1)
	require.NoError(t, err)
	assert.Len(t, r.DirectCallers, 1)
	assert.Empty(t, r.IndirectCallers)

	_, err = a.Analyze("symbol:zzz", 1, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestForFiles(t *testing.T) {
	a := newTestAnalyzer(t)

	reports, err := a.ForFiles([]string{"a.py", "a.py", "missing.py"}, 0)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "symbol:a.py:fetch", reports[0].Target.ID)
	assert.Equal(t, "symbol:a.py:handler", reports[1].Target.ID)
	assert.Equal(t, []string{"symbol:b.py:main"}, ids(reports[1].DirectCallers))
}

func TestRisk(t *testing.T) {
	callers := func(n int) []graph.Node { return make([]graph.Node, n) }

	assert.Equal(t, "low", (&Report{}).Risk())
	assert.Equal(t, "medium", (&Report{DirectCallers: callers(5)}).Risk())
	assert.Equal(t, "medium", (&Report{IndirectCallers: callers(30)}).Risk())
	assert.Equal(t, "high", (&Report{DirectCallers: callers(20)}).Risk())
	assert.Equal(t, "critical", (&Report{DirectCallers: callers(10), IndirectCallers: callers(190)}).Risk())
	assert.Equal(t, "🟠", RiskIcon("high"))
	assert.Equal(t, "🟢", RiskIcon("low"))
}

func TestReportFormats(t *testing.T) {
	a := newTestAnalyzer(t)
	r, err := a.Analyze("symbol:a.py:handler", 0, 0)
	require.NoError(t, err)

	md := r.FormatMarkdown()
	assert.Contains(t, md, "## Impact of changing handler")
	assert.Contains(t, md, "| main | function | b.py:1 |")
	assert.Contains(t, md, "### Callees")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "low", decoded["risk"])
	assert.Equal(t, "symbol:a.py:handler", decoded["target"].(map[string]any)["id"])

	assert.Contains(t, r.Summary(), "Direct Callers: 1")
}

func TestChangedFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init", "-q")
	git("config", "user.email", "dev@example.com")
	git("config", "user.name", "dev")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0o644))

	// no commits yet, so untracked files are reported
	files, err := ChangedFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, files)

	git("add", "a.py")
	git("commit", "-q", "-m", "init")
	files, err = ChangedFiles(dir, "")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 2\n"), 0o644))
	files, err = ChangedFiles(dir, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, files)
}
