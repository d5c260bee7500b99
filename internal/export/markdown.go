package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/zheng/codekg/internal/graph"
)

// MarkdownOptions configures the Markdown reference document
type MarkdownOptions struct {
	ProjectName    string
	IncludeMermaid bool
	TopCalled      int
}

// DefaultMarkdownOptions returns default Markdown options
func DefaultMarkdownOptions() MarkdownOptions {
	return MarkdownOptions{
		ProjectName:    "Project",
		IncludeMermaid: true,
		TopCalled:      20,
	}
}

// Markdown writes a reference document meant for retrieval: one section per
// file with its symbols, imports and resources, then the most called names.
func Markdown(w io.Writer, g *graph.Graph, opts MarkdownOptions) error {
	bw := bufio.NewWriter(w)
	files := nodesOfKind(g, graph.NodeKindFile)

	fmt.Fprintf(bw, "# %s code graph\n\n", opts.ProjectName)
	fmt.Fprintf(bw, "> Files: %d | Nodes: %d | Edges: %d\n\n", len(files), g.NodeCount(), g.EdgeCount())

	if opts.IncludeMermaid && len(files) > 0 {
		if err := writeImportDiagram(bw, g, files); err != nil {
			return err
		}
	}

	fmt.Fprintf(bw, "---\n\n## Files\n\n")
	symbolsByFile := groupByFile(g)
	for _, file := range files {
		path, ok := file.Meta.Get("path")
		if !ok {
			path = file.Name
		}
		writeFileSection(bw, g, file, symbolsByFile[path])
	}

	writeMostCalled(bw, g, opts.TopCalled)
	return bw.Flush()
}

// writeImportDiagram writes a Mermaid view of files and the modules they import
func writeImportDiagram(w io.Writer, g *graph.Graph, files []graph.Node) error {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
		for _, m := range g.Successors(f.ID, graph.EdgeKindImports) {
			ids = append(ids, m.ID)
		}
	}
	fmt.Fprintf(w, "## Imports\n\n```mermaid\n")
	if err := Mermaid(w, g.Subgraph(ids)); err != nil {
		return err
	}
	fmt.Fprintf(w, "```\n\n")
	return nil
}

func writeFileSection(w io.Writer, g *graph.Graph, file graph.Node, symbols []graph.Node) {
	fmt.Fprintf(w, "### 📄 %s\n\n", strings.TrimPrefix(file.ID, "file:"))

	if len(symbols) > 0 {
		fmt.Fprintf(w, "| Symbol | Kind | Line | Callers | Calls |\n")
		fmt.Fprintf(w, "|--------|------|------|---------|-------|\n")
		for _, s := range symbols {
			line, _ := s.Meta.Get("line")
			if line == "" {
				line = "-"
			}
			fmt.Fprintf(w, "| `%s` | %s | %s | %d | %d |\n",
				s.Name, s.Kind, line, callerCount(g, s), len(g.Successors(s.ID, graph.EdgeKindCalls)))
		}
		fmt.Fprintf(w, "\n")
	}

	if imports := g.Successors(file.ID, graph.EdgeKindImports); len(imports) > 0 {
		fmt.Fprintf(w, "- **Imports**: %s\n", codeList(imports))
	}
	if reads := g.Successors(file.ID, graph.EdgeKindReads); len(reads) > 0 {
		fmt.Fprintf(w, "- **Reads**: %s\n", codeList(reads))
	}
	if writes := g.Successors(file.ID, graph.EdgeKindWrites); len(writes) > 0 {
		fmt.Fprintf(w, "- **Writes**: %s\n", codeList(writes))
	}
	fmt.Fprintf(w, "\n")
}

// writeMostCalled writes a summary of the names with the most distinct callers
func writeMostCalled(w io.Writer, g *graph.Graph, limit int) {
	type calledName struct {
		node    graph.Node
		callers int
	}

	var called []calledName
	for _, n := range g.SortedNodes() {
		if c := len(g.Predecessors(n.ID, graph.EdgeKindCalls)); c > 0 {
			called = append(called, calledName{n, c})
		}
	}
	if len(called) == 0 {
		return
	}
	sort.SliceStable(called, func(i, j int) bool {
		return called[i].callers > called[j].callers
	})
	if limit > 0 && len(called) > limit {
		called = called[:limit]
	}

	fmt.Fprintf(w, "---\n\n## Most called\n\n")
	fmt.Fprintf(w, "| Name | Callers | Risk |\n")
	fmt.Fprintf(w, "|------|---------|------|\n")
	for _, c := range called {
		risk := "🟢"
		if c.callers >= 5 {
			risk = "🔴 high"
		} else if c.callers >= 3 {
			risk = "🟡 medium"
		}
		fmt.Fprintf(w, "| `%s` | %d | %s |\n", c.node.Name, c.callers, risk)
	}
}

// callerCount counts callers of the symbol itself and of its unresolved name
func callerCount(g *graph.Graph, n graph.Node) int {
	count := len(g.Predecessors(n.ID, graph.EdgeKindCalls))
	if anyID := graph.AnySymbolID(n.Name); anyID != n.ID {
		count += len(g.Predecessors(anyID, graph.EdgeKindCalls))
	}
	return count
}

func nodesOfKind(g *graph.Graph, kind graph.NodeKind) []graph.Node {
	var out []graph.Node
	for _, n := range g.SortedNodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// groupByFile indexes nodes carrying a file meta by that file, ordered by line then name
func groupByFile(g *graph.Graph) map[string][]graph.Node {
	byFile := make(map[string][]graph.Node)
	for _, n := range g.SortedNodes() {
		if file, ok := n.Meta.Get("file"); ok {
			byFile[file] = append(byFile[file], n)
		}
	}
	for _, nodes := range byFile {
		sort.SliceStable(nodes, func(i, j int) bool {
			li, lj := lineOf(nodes[i]), lineOf(nodes[j])
			if li != lj {
				return li < lj
			}
			return nodes[i].Name < nodes[j].Name
		})
	}
	return byFile
}

func lineOf(n graph.Node) int {
	line, _ := n.Meta.Get("line")
	v, _ := strconv.Atoi(line)
	return v
}

func codeList(nodes []graph.Node) string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = "`" + n.Name + "`"
	}
	return strings.Join(names, ", ")
}
