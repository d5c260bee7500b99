package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/graph"
)

const shapesSource = `package shapes

import (
	"fmt"
	str "strings"
)

const Sides = 4

var registry = map[string]Shape{}

type Shape interface {
	fmt.Stringer
	Area() float64
}

type Base struct{}

type Square struct {
	Base
	Side float64
}

func (s *Square) Area() float64 {
	return s.Side * s.Side
}

func NewSquare(side float64) *Square {
	fmt.Println(str.ToUpper("new"))
	return &Square{Side: side}
}
`

func TestGoExtractor_Supports(t *testing.T) {
	x := NewGoExtractor()
	assert.Equal(t, "go", x.Name())
	assert.True(t, x.Supports("cmd/main.go", ""))
	assert.True(t, x.Supports("LEGACY.GO", ""))
	assert.False(t, x.Supports("main.py", "package main"))
}

func TestGoExtractor_Declarations(t *testing.T) {
	g := extractText(t, NewGoExtractor(), "shapes.go", shapesSource)

	_, ok := findEdge(g, "package:shapes", "file:shapes.go", graph.EdgeKindContains)
	assert.True(t, ok)

	kinds := map[string]graph.NodeKind{
		"symbol:shapes.go:Sides":       graph.NodeKindConstant,
		"symbol:shapes.go:registry":    graph.NodeKindVariable,
		"symbol:shapes.go:Shape":       graph.NodeKindInterface,
		"symbol:shapes.go:Base":        graph.NodeKindClass,
		"symbol:shapes.go:Square":      graph.NodeKindClass,
		"symbol:shapes.go:Square.Area": graph.NodeKindMethod,
		"symbol:shapes.go:NewSquare":   graph.NodeKindFunction,
	}
	for id, kind := range kinds {
		n, ok := g.Node(id)
		require.True(t, ok, id)
		assert.Equal(t, kind, n.Kind, id)
		_, ok = findEdge(g, "file:shapes.go", id, graph.EdgeKindContains)
		assert.True(t, ok, id)
	}

	area, _ := g.Node("symbol:shapes.go:Square.Area")
	assert.Equal(t, "Area", area.Name)
	line, _ := area.Meta.Get("line")
	assert.Equal(t, "24", line)
}

func TestGoExtractor_Imports(t *testing.T) {
	g := extractText(t, NewGoExtractor(), "shapes.go", shapesSource)

	e, ok := findEdge(g, "file:shapes.go", "import:fmt", graph.EdgeKindImports)
	require.True(t, ok)
	_, hasAlias := e.Meta.Get("alias")
	assert.False(t, hasAlias)

	e, ok = findEdge(g, "file:shapes.go", "import:strings", graph.EdgeKindImports)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"alias": "str", "line": "5"}, e.Meta.Map())
}

func TestGoExtractor_TypeRelations(t *testing.T) {
	g := extractText(t, NewGoExtractor(), "shapes.go", shapesSource)

	_, ok := findEdge(g, "symbol:shapes.go:Square", "type:Base", graph.EdgeKindExtends)
	assert.True(t, ok)
	_, ok = findEdge(g, "symbol:shapes.go:Shape", "type:fmt.Stringer", graph.EdgeKindExtends)
	assert.True(t, ok)

	_, ok = findEdge(g, "type:Square", "symbol:shapes.go:Square.Area", graph.EdgeKindDefines)
	assert.True(t, ok)
	_, ok = findEdge(g, "symbol:shapes.go:Square.Area", "type:float64", graph.EdgeKindReturns)
	assert.True(t, ok)
	_, ok = findEdge(g, "symbol:shapes.go:NewSquare", "type:float64", graph.EdgeKindParam)
	assert.True(t, ok)
	_, ok = findEdge(g, "symbol:shapes.go:NewSquare", "type:Square", graph.EdgeKindReturns)
	assert.True(t, ok)
}

func TestGoExtractor_Calls(t *testing.T) {
	g := extractText(t, NewGoExtractor(), "shapes.go", shapesSource)

	callees := g.Successors("symbol:shapes.go:NewSquare", graph.EdgeKindCalls)
	got := make([]string, 0, len(callees))
	for _, n := range callees {
		got = append(got, n.ID)
	}
	assert.Equal(t, []string{"symbol:any:Println", "symbol:any:ToUpper"}, got)
	assert.Empty(t, g.Successors("symbol:shapes.go:Square.Area", graph.EdgeKindCalls))
}

func TestGoExtractor_NotGo(t *testing.T) {
	g := graph.New()
	err := NewGoExtractor().Extract("fake.go", "this is not go", g)
	require.Error(t, err)
	assert.Equal(t, 0, g.NodeCount())
}

func TestGoExtractor_PartialSource(t *testing.T) {
	g := extractText(t, NewGoExtractor(), "broken.go", "package broken\n\nfunc Ok() {}\n\nfunc Bad( {\n")
	assert.True(t, g.HasNode("symbol:broken.go:Ok"))
}
