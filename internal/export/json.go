package export

import (
	"encoding/json"
	"io"

	"github.com/zheng/codekg/internal/graph"
)

// JSON writes the graph snapshot as indented JSON
func JSON(w io.Writer, g *graph.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.Snapshot())
}
