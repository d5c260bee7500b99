package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/zheng/codekg/internal/graph"
)

var mermaidEscaper = strings.NewReplacer(`"`, "#quot;", "<", "#lt;", ">", "#gt;")

// Mermaid writes the graph as a Mermaid flowchart. Node ids are arbitrary
// strings, so each node gets a positional identifier in snapshot order.
func Mermaid(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	doc := g.Snapshot()

	fmt.Fprintf(bw, "flowchart LR\n")

	ids := make(map[string]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		id := fmt.Sprintf("n%d", i)
		ids[n.ID] = id
		fmt.Fprintf(bw, "    %s[\"%s<br/>(%s)\"]\n", id, mermaidEscaper.Replace(n.Name), n.Kind)
	}

	for _, e := range doc.Edges {
		arrow := "-->"
		if e.Kind == graph.EdgeKindContains.String() {
			arrow = "-.->"
		}
		fmt.Fprintf(bw, "    %s %s|%s| %s\n", ids[e.Source], arrow, e.Kind, ids[e.Target])
	}
	return bw.Flush()
}
