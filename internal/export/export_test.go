package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/graph"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.EnsureNode("file:a.py", "a.py", graph.NodeKindFile, graph.MetaOf("path", "a.py"))
	g.EnsureNode("import:os", "os", graph.NodeKindModule, graph.Meta{})
	g.EnsureNode("symbol:a.py:run", "run", graph.NodeKindFunction, graph.MetaOf("line", "2", "file", "a.py"))
	g.EnsureNode("symbol:any:run", "run", graph.NodeKindFunction, graph.Meta{})
	g.EnsureNode("resource:/tmp/x", `say "hi"`, graph.NodeKindResource, graph.Meta{})

	for _, e := range []graph.Edge{
		graph.NewEdge("file:a.py", "import:os", graph.EdgeKindImports, map[string]string{"text": "import os"}),
		graph.NewEdge("file:a.py", "symbol:a.py:run", graph.EdgeKindContains, nil),
		graph.NewEdge("file:a.py", "symbol:any:run", graph.EdgeKindCalls, map[string]string{"line": "5"}),
		graph.NewEdge("file:a.py", "resource:/tmp/x", graph.EdgeKindWrites, map[string]string{"line": "6"}),
		graph.NewEdge("symbol:a.py:run", "resource:/tmp/x", graph.EdgeKindThrows, nil),
	} {
		_, err := g.AddEdge(e)
		require.NoError(t, err)
	}
	return g
}

func render(t *testing.T, g *graph.Graph, format Format) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, format))
	return buf.String()
}

func TestJSON(t *testing.T) {
	out := render(t, sampleGraph(t), FormatJSON)

	var doc graph.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Nodes, 5)
	assert.Len(t, doc.Edges, 5)
	assert.Equal(t, "file:a.py", doc.Nodes[0].ID)
	assert.Contains(t, out, "\n  \"nodes\": [")
}

func TestDOT(t *testing.T) {
	out := render(t, sampleGraph(t), FormatDOT)

	assert.True(t, strings.HasPrefix(out, "digraph code_kg {\n  rankdir=LR;\n  node [shape=box, style=rounded];\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `  "file:a.py" [label="a.py\n(file)"];`)
	assert.Contains(t, out, `  "resource:/tmp/x" [label="say \"hi\"\n(resource)"];`)
	assert.Contains(t, out, `  "file:a.py" -> "import:os" [label="imports",color=blue];`)
	assert.Contains(t, out, `  "file:a.py" -> "symbol:a.py:run" [label="contains",color=gray,style=dashed];`)
	// kinds without a style render with the label only
	assert.Contains(t, out, `  "symbol:a.py:run" -> "resource:/tmp/x" [label="throws"];`)
}

func TestEdgeStyle(t *testing.T) {
	style, ok := EdgeStyle(graph.EdgeKindWrites)
	assert.True(t, ok)
	assert.Equal(t, "color=red", style)

	_, ok = EdgeStyle(graph.EdgeKindDecorates)
	assert.False(t, ok)
}

func TestMermaid(t *testing.T) {
	out := render(t, sampleGraph(t), FormatMermaid)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "flowchart LR", lines[0])
	assert.Equal(t, `    n0["a.py<br/>(file)"]`, lines[1])
	assert.Equal(t, `    n2["say #quot;hi#quot;<br/>(resource)"]`, lines[3])
	assert.Contains(t, out, "    n0 -.->|contains| n3\n")
	assert.Contains(t, out, "    n0 -->|imports| n1\n")
}

func TestMarkdown(t *testing.T) {
	out := render(t, sampleGraph(t), FormatMarkdown)

	assert.True(t, strings.HasPrefix(out, "# Project code graph\n\n> Files: 1 | Nodes: 5 | Edges: 5\n"))
	assert.Contains(t, out, "```mermaid\nflowchart LR\n")
	assert.Contains(t, out, "### 📄 a.py")
	assert.Contains(t, out, "| `run` | function | 2 | 1 | 0 |")
	assert.Contains(t, out, "- **Imports**: `os`")
	assert.Contains(t, out, "- **Writes**: `say \"hi\"`")
	assert.Contains(t, out, "## Most called")

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleGraph(t), MarkdownOptions{ProjectName: "demo"}))
	assert.NotContains(t, buf.String(), "```mermaid")
	assert.True(t, strings.HasPrefix(buf.String(), "# demo code graph"))
}

func TestRenderingIsDeterministic(t *testing.T) {
	for _, f := range Formats() {
		assert.Equal(t, render(t, sampleGraph(t), f), render(t, sampleGraph(t), f), f)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" DOT ")
	require.NoError(t, err)
	assert.Equal(t, FormatDOT, f)

	_, err = ParseFormat("svg")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.ErrorIs(t, Write(&bytes.Buffer{}, graph.New(), Format("svg")), ErrUnknownFormat)
}
