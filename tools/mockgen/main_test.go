package main

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/extract"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/scanner"
)

func smallConfig(dir, lang string) *Config {
	return &Config{OutputDir: dir, Lang: lang, NumPackages: 3, NumFuncsPerPkg: 6, MaxDepth: 2, CallDensity: 2, Seed: 7}
}

func TestGenerateProject_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, generateProject(smallConfig(a, "py")))
	require.NoError(t, generateProject(smallConfig(b, "py")))

	for _, name := range []string{"pkg00.py", "pkg01.py", "pkg02.py"} {
		want, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}
}

func TestGenerateProject_ScansIntoGraph(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateProject(smallConfig(dir, "py")))

	sc, err := scanner.New()
	require.NoError(t, err)
	g := sc.Scan([]string{dir})

	fileID := graph.FileID(filepath.Join(dir, "pkg00.py"))
	assert.True(t, g.HasNode(fileID))
	assert.True(t, g.HasNode(graph.SymbolID(filepath.Join(dir, "pkg00.py"), "func0000")))

	var calls int
	for e := range g.Edges() {
		if e.Kind == graph.EdgeKindCalls {
			calls++
		}
	}
	assert.Positive(t, calls)
}

func TestGenerateProject_Go(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateProject(smallConfig(dir, "go")))

	path := filepath.Join(dir, "pkg00", "code.go")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := graph.New()
	require.NoError(t, extract.NewGoExtractor().Extract(path, string(data), g))
	assert.True(t, g.HasNode(graph.PackageID("pkg00")))
	assert.True(t, g.HasNode(graph.SymbolID(path, "Func0000")))
}

func TestGenerateCalls_OnlyDeeperAndLaterPackages(t *testing.T) {
	cfg := smallConfig(t.TempDir(), "py")
	funcs := generateFuncRegistry(cfg)
	byDepth := organizeFuncsByDepth(funcs, cfg.MaxDepth)

	rng := rand.New(rand.NewPCG(1, 2))
	for _, fn := range funcs {
		for _, c := range generateCalls(rng, fn, byDepth, cfg) {
			assert.Greater(t, c.Depth, fn.Depth)
			assert.GreaterOrEqual(t, c.PkgIdx, fn.PkgIdx)
		}
	}
}
