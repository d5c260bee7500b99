package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/zheng/codekg/internal/graph"
)

// edgeStyles are the default Graphviz attributes per edge kind.
// Kinds without an entry render with their label only.
var edgeStyles = map[graph.EdgeKind]string{
	graph.EdgeKindContains:   "color=gray,style=dashed",
	graph.EdgeKindImports:    "color=blue",
	graph.EdgeKindCalls:      "color=darkgreen",
	graph.EdgeKindExtends:    "color=purple",
	graph.EdgeKindImplements: "color=purple,style=dashed",
	graph.EdgeKindReferences: "color=black,style=dotted",
	graph.EdgeKindReads:      "color=orange",
	graph.EdgeKindWrites:     "color=red",
}

// EdgeStyle returns the default style for kind and whether one exists
func EdgeStyle(kind graph.EdgeKind) (string, bool) {
	style, ok := edgeStyles[kind]
	return style, ok
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// DOT writes the graph as a Graphviz digraph
func DOT(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	doc := g.Snapshot()

	fmt.Fprintf(bw, "digraph code_kg {\n")
	fmt.Fprintf(bw, "  rankdir=LR;\n")
	fmt.Fprintf(bw, "  node [shape=box, style=rounded];\n")

	for _, n := range doc.Nodes {
		label := dotEscaper.Replace(n.Name) + `\n(` + n.Kind + ")"
		fmt.Fprintf(bw, "  \"%s\" [label=\"%s\"];\n", dotEscaper.Replace(n.ID), label)
	}

	for _, e := range doc.Edges {
		attrs := fmt.Sprintf("label=\"%s\"", e.Kind)
		if kind, err := graph.ParseEdgeKind(e.Kind); err == nil {
			if style, ok := EdgeStyle(kind); ok {
				attrs += "," + style
			}
		}
		fmt.Fprintf(bw, "  \"%s\" -> \"%s\" [%s];\n", dotEscaper.Replace(e.Source), dotEscaper.Replace(e.Target), attrs)
	}

	fmt.Fprintf(bw, "}\n")
	return bw.Flush()
}
