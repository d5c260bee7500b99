// Package mcp exposes the stored code graph to agents as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/codekg/internal/display"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/impact"
	"github.com/zheng/codekg/internal/storage"
)

// RescanFunc rescans the configured roots and stores the result
type RescanFunc func(ctx context.Context) (scanID string, nodes, edges int, err error)

// Server implements the MCP tools for codekg
type Server struct {
	db        *storage.DB
	rescan    RescanFunc
	logger    *slog.Logger
	mcpServer *mcp.Server
}

// Option configures the server
type Option func(*Server)

// WithRescan registers the rescan tool
func WithRescan(fn RescanFunc) Option {
	return func(s *Server) {
		s.rescan = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server backed by db
func NewServer(db *storage.DB, version string, opts ...Option) *Server {
	s := &Server{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{Name: "codekg", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// SearchArgs are the arguments of the search tool
type SearchArgs struct {
	Pattern string `json:"pattern" jsonschema:"Substring to look for in node names and ids"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of results, default 20"`
}

// NodeArgs are the arguments of the node tool
type NodeArgs struct {
	ID string `json:"id" jsonschema:"Node id such as symbol:src/app.py:main or file:src/app.py"`
}

// NeighborsArgs are the arguments of the neighbors tool
type NeighborsArgs struct {
	ID        string   `json:"id" jsonschema:"Node id to start from"`
	Direction string   `json:"direction,omitempty" jsonschema:"out (default) follows edges from the node, in follows edges into it"`
	Kinds     []string `json:"kinds,omitempty" jsonschema:"Edge kinds to follow such as calls or imports; all kinds when empty"`
	Depth     int      `json:"depth,omitempty" jsonschema:"How many levels to expand, default 1, -1 for unlimited"`
}

// ImpactArgs are the arguments of the impact tool
type ImpactArgs struct {
	Name            string `json:"name" jsonschema:"Node id or name of the function, method or class being changed"`
	UpstreamDepth   int    `json:"upstream_depth,omitempty" jsonschema:"Caller levels to follow, default 0 for unlimited"`
	DownstreamDepth int    `json:"downstream_depth,omitempty" jsonschema:"Callee levels to follow, default 0 for unlimited"`
}

// StatsArgs is empty: the stats tool takes no arguments
type StatsArgs struct{}

// RescanArgs is empty: the rescan tool takes no arguments
type RescanArgs struct{}

const defaultSearchLimit = 20

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search",
		Description: "Finds graph nodes whose name or id contains a pattern, best matches first",
	}, s.search)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "node",
		Description: "Returns one node with its metadata and edge counts",
	}, s.node)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "neighbors",
		Description: "Lists nodes connected to a node, optionally filtered by edge kind and expanded as a tree",
	}, s.neighbors)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "impact",
		Description: "Reports the direct and indirect callers and callees of a symbol before it is changed",
	}, s.impact)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "stats",
		Description: "Summarizes the stored graph and the latest scan",
	}, s.stats)

	if s.rescan != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "rescan",
			Description: "Rescans the configured source roots and replaces the stored graph",
		}, s.rescanTool)
	}
}

func (s *Server) search(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Pattern) == "" {
		return errorResult("pattern is required"), nil, nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	nodes, err := s.db.FindNodesByPattern(args.Pattern, limit)
	if err != nil {
		return nil, nil, err
	}
	if len(nodes) == 0 {
		return textResult(fmt.Sprintf("No nodes match %q", args.Pattern)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d nodes:\n", len(nodes))
	for _, n := range nodes {
		fmt.Fprintf(&sb, "- %s [%s] %s\n", n.ID, n.Kind, display.Location(n))
	}
	return textResult(sb.String()), nil, nil
}

func (s *Server) node(ctx context.Context, req *mcp.CallToolRequest, args NodeArgs) (*mcp.CallToolResult, any, error) {
	n, err := s.db.GetNode(args.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return errorResult(fmt.Sprintf("Node %q not found", args.ID)), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	out, err := s.db.Neighbors(n.ID, storage.Outgoing)
	if err != nil {
		return nil, nil, err
	}
	in, err := s.db.Neighbors(n.ID, storage.Incoming)
	if err != nil {
		return nil, nil, err
	}

	result := map[string]any{
		"id":       n.ID,
		"name":     n.Name,
		"kind":     n.Kind.String(),
		"meta":     n.Meta.Map(),
		"outgoing": countKinds(out),
		"incoming": countKinds(in),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

func (s *Server) neighbors(ctx context.Context, req *mcp.CallToolRequest, args NeighborsArgs) (*mcp.CallToolResult, any, error) {
	dir, err := storage.ParseDirection(args.Direction)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	kinds := make([]graph.EdgeKind, 0, len(args.Kinds))
	for _, label := range args.Kinds {
		k, err := graph.ParseEdgeKind(label)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		kinds = append(kinds, k)
	}
	if _, err := s.db.GetNode(args.ID); errors.Is(err, storage.ErrNotFound) {
		return errorResult(fmt.Sprintf("Node %q not found", args.ID)), nil, nil
	} else if err != nil {
		return nil, nil, err
	}

	depth := args.Depth
	switch {
	case depth == 0:
		depth = 1
	case depth < 0:
		depth = 0
	}
	tree, err := s.db.NeighborTree(args.ID, dir, depth, kinds...)
	if err != nil {
		return nil, nil, err
	}
	if len(tree) == 0 {
		return textResult(fmt.Sprintf("%s has no %s neighbors", args.ID, dir)), nil, nil
	}
	return textResult(args.ID + "\n" + display.FormatTree(tree)), nil, nil
}

func (s *Server) impact(ctx context.Context, req *mcp.CallToolRequest, args ImpactArgs) (*mcp.CallToolResult, any, error) {
	analyzer := impact.NewAnalyzer(s.db)
	target, err := analyzer.Resolve(args.Name)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, impact.ErrAmbiguous) {
		return errorResult(err.Error()), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	report, err := analyzer.Analyze(target.ID, args.UpstreamDepth, args.DownstreamDepth)
	if err != nil {
		return nil, nil, err
	}
	return textResult(report.FormatMarkdown()), nil, nil
}

func (s *Server) stats(ctx context.Context, req *mcp.CallToolRequest, args StatsArgs) (*mcp.CallToolResult, any, error) {
	stats, err := s.db.GetStats()
	if err != nil {
		return nil, nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Nodes: %d\nEdges: %d\n", stats.Nodes, stats.Edges)
	writeCounts(&sb, "Nodes by kind", stats.NodesByKind)
	writeCounts(&sb, "Edges by kind", stats.EdgesByKind)

	scan, err := s.db.LatestScan()
	switch {
	case err == nil:
		fmt.Fprintf(&sb, "Latest scan: %s at %s over %s\n",
			scan.ID, scan.CreatedAt.Format("2006-01-02 15:04:05"), strings.Join(scan.Roots, ", "))
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(&sb, "Latest scan: none\n")
	default:
		return nil, nil, err
	}
	return textResult(sb.String()), nil, nil
}

func (s *Server) rescanTool(ctx context.Context, req *mcp.CallToolRequest, args RescanArgs) (*mcp.CallToolResult, any, error) {
	scanID, nodes, edges, err := s.rescan(ctx)
	if err != nil {
		s.logger.Warn("rescan failed", "error", err)
		return errorResult(fmt.Sprintf("Rescan failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Scan %s stored %d nodes and %d edges", scanID, nodes, edges)), nil, nil
}

func countKinds(neighbors []storage.Neighbor) map[string]int {
	counts := make(map[string]int)
	for _, nb := range neighbors {
		counts[nb.Edge.Kind.String()]++
	}
	return counts
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", title)
	for _, kind := range sortedKeys(counts) {
		fmt.Fprintf(sb, "  %s: %d\n", kind, counts[kind])
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
