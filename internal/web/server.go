// Package web serves the stored graph as a JSON API with a small Mermaid viewer.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zheng/codekg/internal/export"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/impact"
	"github.com/zheng/codekg/internal/storage"
)

//go:embed static/*
var staticFS embed.FS

// Server is the web server for browsing a stored graph
type Server struct {
	db     *storage.DB
	addr   string
	logger *slog.Logger
}

// NewServer creates a new web server listening on addr
func NewServer(db *storage.DB, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: db, addr: addr, logger: logger}
}

// TreeData is one node of a neighbor tree
type TreeData struct {
	Node     graph.NodeRecord `json:"node"`
	Via      string           `json:"via"`
	Children []TreeData       `json:"children,omitempty"`
}

// NodeData is a node with its stored edges
type NodeData struct {
	Node     graph.NodeRecord   `json:"node"`
	Outgoing []graph.EdgeRecord `json:"outgoing"`
	Incoming []graph.EdgeRecord `json:"incoming"`
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/node", s.handleNode)
	mux.HandleFunc("GET /api/neighbors", s.handleNeighbors)
	mux.HandleFunc("GET /api/impact", s.handleImpact)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/mermaid", s.handleMermaid)

	staticContent, err := fs.Sub(staticFS, "static")
	if err == nil {
		mux.Handle("GET /", http.FileServer(http.FS(staticContent)))
	}
	return mux
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server starting", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// handleGraph returns the complete graph
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.db.LoadGraph()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, g.Snapshot())
}

// handleNode returns a single node with its edges
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookup(w, r)
	if !ok {
		return
	}

	out, err := s.db.Neighbors(node.ID, storage.Outgoing)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	in, err := s.db.Neighbors(node.ID, storage.Incoming)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, NodeData{Node: node.Record(), Outgoing: edgeRecords(out), Incoming: edgeRecords(in)})
}

// handleNeighbors returns the neighbor tree of a node
func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir, err := storage.ParseDirection(q.Get("direction"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	kinds, err := edgeKinds(q["kind"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	node, ok := s.lookup(w, r)
	if !ok {
		return
	}

	tree, err := s.db.NeighborTree(node.ID, dir, intParam(r, "depth", 2), kinds...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, treeData(tree))
}

// handleImpact returns impact analysis for a node
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookup(w, r)
	if !ok {
		return
	}
	report, err := impact.NewAnalyzer(s.db).Analyze(node.ID, intParam(r, "up", 3), intParam(r, "down", 3))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

// handleSearch searches for nodes by pattern
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("q")
	if pattern == "" {
		writeJSON(w, []graph.NodeRecord{})
		return
	}

	nodes, err := s.db.FindNodesByPattern(pattern, intParam(r, "limit", 50))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	records := make([]graph.NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		records = append(records, n.Record())
	}
	writeJSON(w, records)
}

// handleStats returns database statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

// handleMermaid renders the neighborhood of a node, or the whole graph, as a Mermaid flowchart
func (s *Server) handleMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.db.LoadGraph()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		if !g.HasNode(id) {
			http.Error(w, "Node not found", http.StatusNotFound)
			return
		}
		g = g.Subgraph(neighborhood(g, id, intParam(r, "depth", 1)))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := export.Mermaid(w, g); err != nil {
		s.logger.Warn("render mermaid", "error", err)
	}
}

// lookup resolves the id query parameter, writing an error response when it fails
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (graph.Node, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing node id", http.StatusBadRequest)
		return graph.Node{}, false
	}
	node, err := s.db.GetNode(id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Node not found", http.StatusNotFound)
		return graph.Node{}, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return graph.Node{}, false
	}
	return node, true
}

// neighborhood collects ids within depth edges of id in either direction
func neighborhood(g *graph.Graph, id string, depth int) []string {
	seen := map[string]bool{id: true}
	ids := []string{id}
	frontier := []string{id}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, cur := range frontier {
			for _, n := range append(g.Successors(cur), g.Predecessors(cur)...) {
				if !seen[n.ID] {
					seen[n.ID] = true
					ids = append(ids, n.ID)
					next = append(next, n.ID)
				}
			}
		}
		frontier = next
	}
	return ids
}

func treeData(tree []*storage.TreeNode) []TreeData {
	out := make([]TreeData, 0, len(tree))
	for _, t := range tree {
		out = append(out, TreeData{Node: t.Node.Record(), Via: t.Via.String(), Children: treeData(t.Children)})
	}
	return out
}

func edgeRecords(neighbors []storage.Neighbor) []graph.EdgeRecord {
	records := make([]graph.EdgeRecord, 0, len(neighbors))
	for _, nb := range neighbors {
		records = append(records, nb.Edge.Record())
	}
	return records
}

func edgeKinds(labels []string) ([]graph.EdgeKind, error) {
	var kinds []graph.EdgeKind
	for _, raw := range labels {
		for _, label := range strings.Split(raw, ",") {
			k, err := graph.ParseEdgeKind(strings.TrimSpace(label))
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

func intParam(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(data)
}
