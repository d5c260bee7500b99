// Package impact answers "what is affected if this changes" over a stored graph.
package impact

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zheng/codekg/internal/display"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/storage"
)

// ErrAmbiguous is returned when a query matches more than one node
var ErrAmbiguous = errors.New("ambiguous node name")

// Analyzer performs impact analysis on the code graph
type Analyzer struct {
	db *storage.DB
}

// NewAnalyzer creates a new impact analyzer
func NewAnalyzer(db *storage.DB) *Analyzer {
	return &Analyzer{db: db}
}

// Report is the impact of changing one node
type Report struct {
	Target          graph.Node
	DirectCallers   []graph.Node
	IndirectCallers []graph.Node
	DirectCallees   []graph.Node
	IndirectCallees []graph.Node
}

// MarshalJSON encodes the report with nodes in their record form
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Target          graph.NodeRecord   `json:"target"`
		Risk            string             `json:"risk"`
		DirectCallers   []graph.NodeRecord `json:"direct_callers"`
		IndirectCallers []graph.NodeRecord `json:"indirect_callers"`
		DirectCallees   []graph.NodeRecord `json:"direct_callees"`
		IndirectCallees []graph.NodeRecord `json:"indirect_callees"`
	}{
		Target:          r.Target.Record(),
		Risk:            r.Risk(),
		DirectCallers:   records(r.DirectCallers),
		IndirectCallers: records(r.IndirectCallers),
		DirectCallees:   records(r.DirectCallees),
		IndirectCallees: records(r.IndirectCallees),
	})
}

func records(nodes []graph.Node) []graph.NodeRecord {
	out := make([]graph.NodeRecord, len(nodes))
	for i, n := range nodes {
		out[i] = n.Record()
	}
	return out
}

// Resolve finds the node a query refers to: an exact id, else the single node
// with that exact name, else the single node matching it as a pattern.
func (a *Analyzer) Resolve(query string) (graph.Node, error) {
	if n, err := a.db.GetNode(query); err == nil {
		return n, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return graph.Node{}, err
	}

	nodes, err := a.db.FindNodesByPattern(query, 0)
	if err != nil {
		return graph.Node{}, fmt.Errorf("failed to find node: %w", err)
	}
	if len(nodes) == 0 {
		return graph.Node{}, fmt.Errorf("%q: %w", query, storage.ErrNotFound)
	}

	var exact []graph.Node
	for _, n := range nodes {
		if n.Name == query {
			exact = append(exact, n)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) == 0 && len(nodes) == 1:
		return nodes[0], nil
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = nodes
	}
	ids := make([]string, 0, len(candidates))
	for _, n := range candidates {
		ids = append(ids, n.ID)
	}
	return graph.Node{}, fmt.Errorf("%w %q, found %d matches: %s", ErrAmbiguous, query, len(ids), strings.Join(ids, ", "))
}

// Analyze reports the callers and callees of the node with id. Depths count
// call hops; 1 reports direct neighbors only and 0 means unlimited.
func (a *Analyzer) Analyze(id string, upstreamDepth, downstreamDepth int) (*Report, error) {
	target, err := a.db.GetNode(id)
	if err != nil {
		return nil, err
	}

	report := &Report{Target: target}

	report.DirectCallers, report.IndirectCallers, err = a.walk(target, upstreamDepth, a.callers)
	if err != nil {
		return nil, fmt.Errorf("failed to get callers: %w", err)
	}
	report.DirectCallees, report.IndirectCallees, err = a.walk(target, downstreamDepth, a.callees)
	if err != nil {
		return nil, fmt.Errorf("failed to get callees: %w", err)
	}
	return report, nil
}

// ForFiles analyzes every function, method and class declared in the given files
func (a *Analyzer) ForFiles(files []string, upstreamDepth int) ([]*Report, error) {
	var reports []*Report
	seen := make(map[string]bool)
	for _, file := range files {
		nodes, err := a.db.FindNodesInFile(file)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if seen[n.ID] || !isCallable(n.Kind) {
				continue
			}
			seen[n.ID] = true
			r, err := a.Analyze(n.ID, upstreamDepth, 1)
			if err != nil {
				return nil, err
			}
			reports = append(reports, r)
		}
	}
	return reports, nil
}

func isCallable(kind graph.NodeKind) bool {
	switch kind {
	case graph.NodeKindFunction, graph.NodeKindMethod, graph.NodeKindClass:
		return true
	}
	return false
}

// walk expands next breadth first and splits the result into the first level and the rest
func (a *Analyzer) walk(start graph.Node, depth int, next func(graph.Node) ([]graph.Node, error)) (direct, indirect []graph.Node, err error) {
	visited := map[string]bool{start.ID: true}
	frontier := []graph.Node{start}
	for level := 1; len(frontier) > 0 && (depth <= 0 || level <= depth); level++ {
		var found []graph.Node
		for _, n := range frontier {
			neighbors, err := next(n)
			if err != nil {
				return nil, nil, err
			}
			for _, nb := range neighbors {
				if visited[nb.ID] {
					continue
				}
				visited[nb.ID] = true
				found = append(found, nb)
			}
		}
		if level == 1 {
			direct = found
		} else {
			indirect = append(indirect, found...)
		}
		frontier = found
	}
	return direct, indirect, nil
}

// callers returns the nodes with a CALLS edge to n or to the unresolved symbol of its name
func (a *Analyzer) callers(n graph.Node) ([]graph.Node, error) {
	ids := []string{n.ID}
	if anyID := graph.AnySymbolID(n.Name); anyID != n.ID {
		ids = append(ids, anyID)
	}
	var out []graph.Node
	for _, id := range ids {
		neighbors, err := a.db.Neighbors(id, storage.Incoming, graph.EdgeKindCalls)
		if err != nil {
			return nil, err
		}
		out = appendNodes(out, neighbors)
	}
	return out, nil
}

func (a *Analyzer) callees(n graph.Node) ([]graph.Node, error) {
	neighbors, err := a.db.Neighbors(n.ID, storage.Outgoing, graph.EdgeKindCalls)
	if err != nil {
		return nil, err
	}
	return appendNodes(nil, neighbors), nil
}

func appendNodes(out []graph.Node, neighbors []storage.Neighbor) []graph.Node {
	for _, nb := range neighbors {
		if !slices.ContainsFunc(out, func(n graph.Node) bool { return n.ID == nb.Node.ID }) {
			out = append(out, nb.Node)
		}
	}
	return out
}

// Risk grades a change by how many callers it reaches
func (r *Report) Risk() string {
	direct := len(r.DirectCallers)
	total := direct + len(r.IndirectCallers)
	switch {
	case direct >= 50 || total >= 200:
		return "critical"
	case direct >= 20 || total >= 100:
		return "high"
	case direct >= 5 || total >= 30:
		return "medium"
	}
	return "low"
}

// RiskIcon returns the marker used for a risk level
func RiskIcon(level string) string {
	switch level {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	}
	return "🟢"
}

// FormatMarkdown formats the impact report as markdown
func (r *Report) FormatMarkdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Impact of changing %s\n\n", r.Target.Name)
	fmt.Fprintf(&sb, "**Node:** `%s`\n\n", r.Target.ID)
	fmt.Fprintf(&sb, "**Location:** %s\n\n", display.Location(r.Target))
	fmt.Fprintf(&sb, "**Risk:** %s %s\n\n", RiskIcon(r.Risk()), r.Risk())

	writeSection(&sb, "Direct callers (check whether they need the same change)", r.DirectCallers, "_No direct callers_")
	writeSection(&sb, "Indirect callers (may be affected)", r.IndirectCallers, "")
	writeSection(&sb, "Callees", r.DirectCallees, "_No callees_")
	writeSection(&sb, "Indirect callees", r.IndirectCallees, "")

	return sb.String()
}

func writeSection(sb *strings.Builder, title string, nodes []graph.Node, empty string) {
	if len(nodes) == 0 {
		if empty != "" {
			fmt.Fprintf(sb, "### %s\n\n%s\n\n", title, empty)
		}
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", title)
	sb.WriteString("| Name | Kind | Location |\n")
	sb.WriteString("|------|------|----------|\n")
	for _, n := range nodes {
		fmt.Fprintf(sb, "| %s | %s | %s |\n", n.Name, n.Kind, display.Location(n))
	}
	sb.WriteString("\n")
}

// Summary returns a brief summary of the impact report
func (r *Report) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Direct Callers: %d, Indirect Callers: %d, Direct Callees: %d, Indirect Callees: %d",
		r.Target.ID,
		len(r.DirectCallers),
		len(r.IndirectCallers),
		len(r.DirectCallees),
		len(r.IndirectCallees),
	)
}
