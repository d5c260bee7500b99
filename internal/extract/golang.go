package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/inspector"

	"github.com/zheng/codekg/internal/graph"
)

// GoExtractor understands Go source through go/parser instead of line patterns.
// It runs alongside the heuristic extractor and shares its file and coarse symbol ids.
type GoExtractor struct{}

// NewGoExtractor creates a Go extractor
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

// Name implements Extractor
func (x *GoExtractor) Name() string {
	return "go"
}

// Supports implements Extractor
func (x *GoExtractor) Supports(filePath, text string) bool {
	return strings.HasSuffix(strings.ToLower(filePath), ".go")
}

// LanguageHint implements LanguageHinter
func (x *GoExtractor) LanguageHint(filePath string) string {
	return "go"
}

// Extract implements Extractor. Syntax errors past the package clause are
// tolerated and whatever parsed is extracted.
func (x *GoExtractor) Extract(filePath, text string, g *graph.Graph) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filePath, text, parser.SkipObjectResolution)
	if f == nil || f.Name == nil || f.Name.Name == "" {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}

	w := &goWalker{
		fset:     fset,
		g:        g,
		filePath: filePath,
		fileID:   ensureFileNode(g, filePath),
	}
	return w.walk(f)
}

// goWalker carries per-file state while walking one AST
type goWalker struct {
	fset     *token.FileSet
	g        *graph.Graph
	filePath string
	fileID   string
}

func (w *goWalker) line(pos token.Pos) string {
	return strconv.Itoa(w.fset.Position(pos).Line)
}

func (w *goWalker) walk(f *ast.File) error {
	pkgID := graph.PackageID(f.Name.Name)
	w.g.EnsureNode(pkgID, f.Name.Name, graph.NodeKindPackage, graph.Meta{})
	if _, err := w.g.Connect(pkgID, w.fileID, graph.EdgeKindContains, graph.Meta{}); err != nil {
		return err
	}

	if err := w.declarations(f); err != nil {
		return err
	}

	insp := inspector.New([]*ast.File{f})
	var walkErr error
	insp.Preorder([]ast.Node{
		(*ast.ImportSpec)(nil),
		(*ast.TypeSpec)(nil),
		(*ast.FuncDecl)(nil),
	}, func(n ast.Node) {
		if walkErr != nil {
			return
		}
		switch n := n.(type) {
		case *ast.ImportSpec:
			walkErr = w.importSpec(n)
		case *ast.TypeSpec:
			walkErr = w.typeSpec(n)
		case *ast.FuncDecl:
			walkErr = w.funcDecl(n)
		}
	})
	if walkErr != nil {
		return walkErr
	}

	insp.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push || walkErr != nil {
			return walkErr == nil
		}
		walkErr = w.callExpr(n.(*ast.CallExpr), stack)
		return walkErr == nil
	})
	return walkErr
}

// declarations records top-level constants and variables
func (w *goWalker) declarations(f *ast.File) error {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		var kind graph.NodeKind
		switch gen.Tok {
		case token.CONST:
			kind = graph.NodeKindConstant
		case token.VAR:
			kind = graph.NodeKindVariable
		default:
			continue
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, name := range vs.Names {
				if name.Name == "_" {
					continue
				}
				if err := w.contains(name.Name, name.Name, kind, name.Pos()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *goWalker) importSpec(spec *ast.ImportSpec) error {
	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		path = spec.Path.Value
	}
	importID := graph.ImportID(path)
	w.g.EnsureNode(importID, path, graph.NodeKindModule, graph.Meta{})

	meta := map[string]string{"line": w.line(spec.Pos())}
	if spec.Name != nil {
		meta["alias"] = spec.Name.Name
	}
	_, err = w.g.Connect(w.fileID, importID, graph.EdgeKindImports, graph.NewMeta(meta))
	return err
}

func (w *goWalker) typeSpec(spec *ast.TypeSpec) error {
	name := spec.Name.Name
	kind := graph.NodeKindType
	var embedded []ast.Expr

	switch t := spec.Type.(type) {
	case *ast.StructType:
		kind = graph.NodeKindClass
		for _, field := range t.Fields.List {
			if len(field.Names) == 0 {
				embedded = append(embedded, field.Type)
			}
		}
	case *ast.InterfaceType:
		kind = graph.NodeKindInterface
		for _, field := range t.Methods.List {
			if len(field.Names) == 0 {
				embedded = append(embedded, field.Type)
			}
		}
	}

	if err := w.contains(name, name, kind, spec.Pos()); err != nil {
		return err
	}
	symbolID := graph.SymbolID(w.filePath, name)
	for _, expr := range embedded {
		if err := w.typeEdge(symbolID, expr, graph.EdgeKindExtends, expr.Pos()); err != nil {
			return err
		}
	}
	return nil
}

func (w *goWalker) funcDecl(decl *ast.FuncDecl) error {
	name := decl.Name.Name
	localName := name
	kind := graph.NodeKindFunction
	recv := ""
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		recv = typeName(decl.Recv.List[0].Type)
		if recv != "" {
			localName = recv + "." + name
			kind = graph.NodeKindMethod
		}
	}

	if err := w.contains(localName, name, kind, decl.Pos()); err != nil {
		return err
	}
	symbolID := graph.SymbolID(w.filePath, localName)

	if recv != "" {
		recvID := graph.TypeID(recv)
		w.g.EnsureNode(recvID, recv, graph.NodeKindType, graph.Meta{})
		if _, err := w.g.Connect(recvID, symbolID, graph.EdgeKindDefines, graph.MetaOf("line", w.line(decl.Pos()))); err != nil {
			return err
		}
	}

	if decl.Type.Params != nil {
		for _, field := range decl.Type.Params.List {
			if err := w.typeEdge(symbolID, field.Type, graph.EdgeKindParam, field.Pos()); err != nil {
				return err
			}
		}
	}
	if decl.Type.Results != nil {
		for _, field := range decl.Type.Results.List {
			if err := w.typeEdge(symbolID, field.Type, graph.EdgeKindReturns, field.Pos()); err != nil {
				return err
			}
		}
	}
	return nil
}

// callExpr links the innermost enclosing function (or the file) to the callee
func (w *goWalker) callExpr(call *ast.CallExpr, stack []ast.Node) error {
	var callee string
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		callee = fn.Name
	case *ast.SelectorExpr:
		callee = fn.Sel.Name
	case *ast.IndexExpr:
		callee = typeName(fn.X)
	case *ast.IndexListExpr:
		callee = typeName(fn.X)
	}
	if callee == "" {
		return nil
	}

	callerID := w.fileID
	for i := len(stack) - 1; i >= 0; i-- {
		decl, ok := stack[i].(*ast.FuncDecl)
		if !ok {
			continue
		}
		local := decl.Name.Name
		if decl.Recv != nil && len(decl.Recv.List) > 0 {
			if recv := typeName(decl.Recv.List[0].Type); recv != "" {
				local = recv + "." + local
			}
		}
		callerID = graph.SymbolID(w.filePath, local)
		break
	}
	if !w.g.HasNode(callerID) {
		callerID = w.fileID
	}

	calleeID := graph.AnySymbolID(callee)
	w.g.EnsureNode(calleeID, callee, graph.NodeKindFunction, graph.Meta{})
	_, err := w.g.Connect(callerID, calleeID, graph.EdgeKindCalls, graph.MetaOf("line", w.line(call.Pos())))
	return err
}

// contains creates a file-scoped symbol and links it from the file node
func (w *goWalker) contains(localName, display string, kind graph.NodeKind, pos token.Pos) error {
	symbolID := graph.SymbolID(w.filePath, localName)
	w.g.EnsureNode(symbolID, display, kind, graph.MetaOf("line", w.line(pos), "file", w.filePath))
	_, err := w.g.Connect(w.fileID, symbolID, graph.EdgeKindContains, graph.Meta{})
	return err
}

// typeEdge links from to the named type of expr, if it has one
func (w *goWalker) typeEdge(from string, expr ast.Expr, kind graph.EdgeKind, pos token.Pos) error {
	name := typeName(expr)
	if name == "" {
		return nil
	}
	typeID := graph.TypeID(name)
	w.g.EnsureNode(typeID, name, graph.NodeKindType, graph.Meta{})
	_, err := w.g.Connect(from, typeID, kind, graph.MetaOf("line", w.line(pos)))
	return err
}

// typeName reduces a type expression to a name: *T, []T, ...T and T[P] become T,
// pkg.T stays qualified. Anonymous types have no name.
func typeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		if x := typeName(t.X); x != "" {
			return x + "." + t.Sel.Name
		}
		return t.Sel.Name
	case *ast.StarExpr:
		return typeName(t.X)
	case *ast.ArrayType:
		return typeName(t.Elt)
	case *ast.Ellipsis:
		return typeName(t.Elt)
	case *ast.ChanType:
		return typeName(t.Value)
	case *ast.IndexExpr:
		return typeName(t.X)
	case *ast.IndexListExpr:
		return typeName(t.X)
	case *ast.ParenExpr:
		return typeName(t.X)
	}
	return ""
}
