package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/graph"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "codekg", SilenceUsage: true, SilenceErrors: true}
	RegisterCommands(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := "import os\n\ndef load(path):\n    return open(path)\n\ndef main():\n    load(\"config.json\")\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(src), 0o644))
	return dir
}

func TestScanJSON(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "scan", dir, "--db", filepath.Join(t.TempDir(), "g.db"))
	require.NoError(t, err)

	var doc graph.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	ids := make(map[string]bool)
	for _, n := range doc.Nodes {
		ids[n.ID] = true
	}
	file := filepath.Join(dir, "app.py")
	assert.True(t, ids[graph.FileID(file)])
	assert.True(t, ids[graph.SymbolID(file, "load")])
	assert.True(t, ids[graph.SymbolID(file, "main")])
}

func TestScanSaveThenQuery(t *testing.T) {
	dir := writeProject(t)
	db := filepath.Join(t.TempDir(), "data", "g.db")

	_, err := execute(t, "scan", dir, "--save", "--db", db, "-o", filepath.Join(t.TempDir(), "graph.json"))
	require.NoError(t, err)

	out, err := execute(t, "search", "load", "--db", db, "--kind", "function")
	require.NoError(t, err)
	assert.Contains(t, out, graph.SymbolID(filepath.Join(dir, "app.py"), "load"))

	out, err = execute(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes:")

	out, err = execute(t, "search", "nothing-like-this", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No nodes match")
}

func TestQueryWithoutDatabase(t *testing.T) {
	_, err := execute(t, "search", "x", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codekg scan --save")
}

func TestScanRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "scan", writeProject(t), "-f", "yaml", "--db", filepath.Join(t.TempDir(), "g.db"))
	assert.Error(t, err)
}
