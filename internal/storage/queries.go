package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/zheng/codekg/internal/graph"
)

// Direction selects which side of an edge a neighbor query follows
type Direction int

const (
	// Outgoing follows edges from the node to its targets
	Outgoing Direction = iota
	// Incoming follows edges from sources to the node
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "in"
	}
	return "out"
}

// ParseDirection accepts "in"/"incoming"/"up" and "out"/"outgoing"/"down"
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "out", "outgoing", "down", "":
		return Outgoing, nil
	case "in", "incoming", "up":
		return Incoming, nil
	}
	return Outgoing, fmt.Errorf("unknown direction %q", s)
}

// Neighbor is a node reached over one stored edge
type Neighbor struct {
	Node graph.Node
	Edge graph.Edge
}

// Scan describes one saved scan
type Scan struct {
	ID        string
	Roots     []string
	NodeCount int
	EdgeCount int
	CreatedAt time.Time
}

// Stats summarizes the stored graph
type Stats struct {
	Nodes       int64            `json:"nodes"`
	Edges       int64            `json:"edges"`
	NodesByKind map[string]int64 `json:"nodes_by_kind"`
	EdgesByKind map[string]int64 `json:"edges_by_kind"`
}

// GetNode returns a node by its id
func (db *DB) GetNode(id string) (graph.Node, error) {
	row := db.conn.QueryRow(`SELECT id, name, kind, meta FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Node{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return n, err
}

// FindNodesByPattern returns nodes whose name or id contains pattern.
// Results are sorted by match quality: exact name > name prefix > name suffix > anything else,
// then by name length. A non-positive limit returns every match.
func (db *DB) FindNodesByPattern(pattern string, limit int) ([]graph.Node, error) {
	if limit <= 0 {
		limit = -1
	}
	like := escapeLike(pattern)
	return db.queryNodes(
		`SELECT id, name, kind, meta FROM nodes
		 WHERE name LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\'
		 ORDER BY
			CASE
				WHEN name = ? THEN 0
				WHEN name LIKE ? || '%' ESCAPE '\' THEN 1
				WHEN name LIKE '%' || ? ESCAPE '\' THEN 2
				ELSE 3
			END,
			length(name) ASC,
			id ASC
		 LIMIT ?`,
		"%"+like+"%", "%"+like+"%", pattern, like, like, limit,
	)
}

// FindNodesByKind returns every node of one kind ordered by id
func (db *DB) FindNodesByKind(kind graph.NodeKind) ([]graph.Node, error) {
	return db.queryNodes(`SELECT id, name, kind, meta FROM nodes WHERE kind = ? ORDER BY id`, kind.String())
}

// FindNodesInFile returns the nodes declared in a source file, matched on the file meta
// either exactly or as a path suffix, ordered by line then id.
func (db *DB) FindNodesInFile(path string) ([]graph.Node, error) {
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	return db.queryNodes(
		`SELECT id, name, kind, meta FROM nodes
		 WHERE json_extract(meta, '$.file') = ? OR json_extract(meta, '$.file') LIKE '%/' || ? ESCAPE '\'
		 ORDER BY CAST(json_extract(meta, '$.line') AS INTEGER), id`,
		path, escapeLike(path),
	)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the LIKE wildcards in s for use with ESCAPE '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Neighbors returns the nodes one edge away from id, optionally limited to some edge kinds.
// Each stored edge yields one entry, ordered by neighbor id then edge kind and metadata.
func (db *DB) Neighbors(id string, dir Direction, kinds ...graph.EdgeKind) ([]Neighbor, error) {
	self, other := "source", "target"
	if dir == Incoming {
		self, other = "target", "source"
	}

	query := `SELECT n.id, n.name, n.kind, n.meta, e.source, e.target, e.kind, e.meta
		 FROM edges e
		 JOIN nodes n ON n.id = e.` + other + `
		 WHERE e.` + self + ` = ?`
	args := []any{id}
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, k.String())
		}
		query += ` AND e.kind IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY n.id, e.kind, e.meta`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Neighbor
	for rows.Next() {
		var nb Neighbor
		var nodeKind, nodeMeta, edgeKind, edgeMeta string
		if err := rows.Scan(&nb.Node.ID, &nb.Node.Name, &nodeKind, &nodeMeta,
			&nb.Edge.Source, &nb.Edge.Target, &edgeKind, &edgeMeta); err != nil {
			return nil, err
		}
		if nb.Node.Kind, err = graph.ParseNodeKind(nodeKind); err != nil {
			return nil, err
		}
		if nb.Node.Meta, err = decodeMeta(nodeMeta); err != nil {
			return nil, err
		}
		if nb.Edge.Kind, err = graph.ParseEdgeKind(edgeKind); err != nil {
			return nil, err
		}
		if nb.Edge.Meta, err = decodeMeta(edgeMeta); err != nil {
			return nil, err
		}
		result = append(result, nb)
	}
	return result, rows.Err()
}

// TreeNode is a node in a neighbor tree with the edge kind that reached it
type TreeNode struct {
	Node     graph.Node
	Via      graph.EdgeKind
	Children []*TreeNode
}

// NeighborTree expands neighbors of id recursively up to maxDepth levels.
// A maxDepth of 0 means no limit. Each node is expanded at most once per
// remaining depth; later occurrences are listed as leaves, so cycles and
// shared subtrees terminate.
func (db *DB) NeighborTree(id string, dir Direction, maxDepth int, kinds ...graph.EdgeKind) ([]*TreeNode, error) {
	budget := maxDepth
	if budget <= 0 {
		budget = math.MaxInt
	}
	return db.neighborTree(id, dir, budget, kinds, map[string]int{id: budget})
}

// neighborTree expands id with depth levels left. expanded records the
// largest depth each node has been expanded with.
func (db *DB) neighborTree(id string, dir Direction, depth int, kinds []graph.EdgeKind, expanded map[string]int) ([]*TreeNode, error) {
	neighbors, err := db.Neighbors(id, dir, kinds...)
	if err != nil {
		return nil, err
	}

	var result []*TreeNode
	seen := make(map[string]bool, len(neighbors))
	for _, nb := range neighbors {
		key := nb.Node.ID + "\x00" + nb.Edge.Kind.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, &TreeNode{Node: nb.Node, Via: nb.Edge.Kind})
	}

	if depth == 1 {
		return result, nil
	}
	remaining := depth - 1
	if depth == math.MaxInt {
		remaining = depth
	}
	for _, child := range result {
		if expanded[child.Node.ID] >= remaining {
			continue
		}
		expanded[child.Node.ID] = remaining
		child.Children, err = db.neighborTree(child.Node.ID, dir, remaining, kinds, expanded)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetStats returns database statistics
func (db *DB) GetStats() (Stats, error) {
	stats := Stats{
		NodesByKind: make(map[string]int64),
		EdgesByKind: make(map[string]int64),
	}
	if err := countByKind(db.conn, `SELECT kind, COUNT(*) FROM nodes GROUP BY kind`, stats.NodesByKind, &stats.Nodes); err != nil {
		return Stats{}, err
	}
	if err := countByKind(db.conn, `SELECT kind, COUNT(*) FROM edges GROUP BY kind`, stats.EdgesByKind, &stats.Edges); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func countByKind(conn *sql.DB, query string, into map[string]int64, total *int64) error {
	rows, err := conn.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return err
		}
		into[kind] = count
		*total += count
	}
	return rows.Err()
}

// LatestScan returns the most recently saved scan
func (db *DB) LatestScan() (Scan, error) {
	var s Scan
	var roots, created string
	err := db.conn.QueryRow(
		`SELECT id, roots, node_count, edge_count, created_at FROM scans
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&s.ID, &roots, &s.NodeCount, &s.EdgeCount, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, fmt.Errorf("scan: %w", ErrNotFound)
	}
	if err != nil {
		return Scan{}, err
	}
	if err := json.Unmarshal([]byte(roots), &s.Roots); err != nil {
		return Scan{}, fmt.Errorf("decode scan roots: %w", err)
	}
	if s.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Scan{}, err
	}
	return s, nil
}

// Helper functions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (graph.Node, error) {
	var n graph.Node
	var kind, meta string
	if err := row.Scan(&n.ID, &n.Name, &kind, &meta); err != nil {
		return graph.Node{}, err
	}
	var err error
	if n.Kind, err = graph.ParseNodeKind(kind); err != nil {
		return graph.Node{}, err
	}
	if n.Meta, err = decodeMeta(meta); err != nil {
		return graph.Node{}, err
	}
	return n, nil
}

func (db *DB) queryNodes(query string, args ...any) ([]graph.Node, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (db *DB) queryEdges(query string, args ...any) ([]graph.Edge, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var kind, meta string
		if err := rows.Scan(&e.Source, &e.Target, &kind, &meta); err != nil {
			return nil, err
		}
		if e.Kind, err = graph.ParseEdgeKind(kind); err != nil {
			return nil, err
		}
		if e.Meta, err = decodeMeta(meta); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
