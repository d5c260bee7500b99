// Package storage persists scanned graphs in SQLite and answers lookups over them.
package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zheng/codekg/internal/graph"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas and in-memory databases consistent
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Clear removes all data from the database
func (db *DB) Clear() error {
	_, err := db.conn.Exec("DELETE FROM edges; DELETE FROM nodes; DELETE FROM scans;")
	return err
}

// Conn returns the underlying database connection for advanced queries
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// SaveGraph replaces the stored graph with g and records a scan of roots.
// Everything happens in one transaction; the new scan id is returned.
func (db *DB) SaveGraph(g *graph.Graph, roots []string) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges; DELETE FROM nodes;"); err != nil {
		return "", err
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes (id, name, kind, meta) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer nodeStmt.Close()
	for _, n := range g.SortedNodes() {
		meta, err := encodeMeta(n.Meta)
		if err != nil {
			return "", err
		}
		if _, err := nodeStmt.Exec(n.ID, n.Name, n.Kind.String(), meta); err != nil {
			return "", fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT INTO edges (source, target, kind, meta) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer edgeStmt.Close()
	for _, e := range g.SortedEdges() {
		meta, err := encodeMeta(e.Meta)
		if err != nil {
			return "", err
		}
		if _, err := edgeStmt.Exec(e.Source, e.Target, e.Kind.String(), meta); err != nil {
			return "", fmt.Errorf("insert edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}

	rootsJSON, err := json.Marshal(roots)
	if err != nil {
		return "", err
	}
	scanID := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO scans (id, roots, node_count, edge_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		scanID, string(rootsJSON), g.NodeCount(), g.EdgeCount(), time.Now().UTC().Format(timeLayout),
	); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return scanID, nil
}

// LoadGraph rebuilds the stored graph in memory
func (db *DB) LoadGraph() (*graph.Graph, error) {
	g := graph.New()

	nodes, err := db.queryNodes(`SELECT id, name, kind, meta FROM nodes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		g.UpsertNode(n)
	}

	edges, err := db.queryEdges(`SELECT source, target, kind, meta FROM edges ORDER BY source, target, kind, meta`)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if _, err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func encodeMeta(m graph.Meta) (string, error) {
	data, err := json.Marshal(m.Map())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMeta(s string) (graph.Meta, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return graph.Meta{}, fmt.Errorf("decode meta: %w", err)
	}
	return graph.NewMeta(m), nil
}
