package extract

import (
	"strconv"
	"strings"

	"github.com/zheng/codekg/internal/graph"
)

// HeuristicConfig holds the verb sets used to classify resource access.
// A line whose leading token is a write verb produces a WRITES edge, a read verb a READS edge.
type HeuristicConfig struct {
	WriteVerbs []string `yaml:"write_verbs"`
	ReadVerbs  []string `yaml:"read_verbs"`
}

// DefaultHeuristicConfig returns the default verb sets
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		WriteVerbs: []string{"write", "save", "put", "append", "update", "post"},
		ReadVerbs:  []string{"read", "get", "open", "fetch", "load", "download"},
	}
}

// Heuristic is a language-agnostic extractor built on line-oriented regular expressions.
//
// It recognizes files, imports, class-like definitions with a base type,
// function-like definitions, constant and variable declarations, call sites,
// and path or URL literals with a read/write verb heuristic.
type Heuristic struct {
	writeVerbs map[string]struct{}
	readVerbs  map[string]struct{}
}

// NewHeuristic creates a heuristic extractor. Empty verb lists fall back to the defaults.
func NewHeuristic(cfg HeuristicConfig) *Heuristic {
	def := DefaultHeuristicConfig()
	if len(cfg.WriteVerbs) == 0 {
		cfg.WriteVerbs = def.WriteVerbs
	}
	if len(cfg.ReadVerbs) == 0 {
		cfg.ReadVerbs = def.ReadVerbs
	}
	return &Heuristic{
		writeVerbs: verbSet(cfg.WriteVerbs),
		readVerbs:  verbSet(cfg.ReadVerbs),
	}
}

func verbSet(verbs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(verbs))
	for _, v := range verbs {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

// Name implements Extractor
func (h *Heuristic) Name() string {
	return "heuristic"
}

// Supports implements Extractor; every file is eligible
func (h *Heuristic) Supports(filePath, text string) bool {
	return true
}

// LanguageHint implements LanguageHinter
func (h *Heuristic) LanguageHint(filePath string) string {
	return languageByExtension(filePath)
}

// Extract implements Extractor. Each category is an independent pass over the
// lines, so one line may contribute to several categories.
func (h *Heuristic) Extract(filePath, text string, g *graph.Graph) error {
	fileID := ensureFileNode(g, filePath)
	lines := lineBreak.Split(text, -1)

	passes := []func(string, string, []string, *graph.Graph) error{
		h.extractImports,
		h.extractDefinitions,
		h.extractDeclarations,
		h.extractCalls,
		h.extractResources,
	}
	for _, pass := range passes {
		if err := pass(filePath, fileID, lines, g); err != nil {
			return err
		}
	}
	return nil
}

func (h *Heuristic) extractImports(filePath, fileID string, lines []string, g *graph.Graph) error {
	for _, line := range lines {
		_, raw, ok := importRules.match(line)
		if !ok {
			continue
		}
		fields := strings.Fields(strings.Trim(strings.TrimSpace(raw), ";{}()"))
		if len(fields) == 0 {
			continue
		}
		target := fields[0]
		importID := graph.ImportID(target)
		g.EnsureNode(importID, target, graph.NodeKindModule, graph.Meta{})
		if _, err := g.Connect(fileID, importID, graph.EdgeKindImports, graph.MetaOf("text", strings.TrimSpace(line))); err != nil {
			return err
		}
	}
	return nil
}

func (h *Heuristic) extractDefinitions(filePath, fileID string, lines []string, g *graph.Graph) error {
	for i, line := range lines {
		r, name, ok := definitionRules.match(line)
		if !ok {
			continue
		}
		lineNo := strconv.Itoa(i + 1)
		symbolID := graph.SymbolID(filePath, name)
		g.EnsureNode(symbolID, name, r.kind, graph.MetaOf("line", lineNo, "file", filePath))

		if r.kind == graph.NodeKindClass {
			m := extendsPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			baseID := graph.TypeID(m[1])
			g.EnsureNode(baseID, m[1], graph.NodeKindType, graph.Meta{})
			if _, err := g.Connect(symbolID, baseID, graph.EdgeKindExtends, graph.MetaOf("line", lineNo)); err != nil {
				return err
			}
			continue
		}

		if _, err := g.Connect(fileID, symbolID, graph.EdgeKindContains, graph.Meta{}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Heuristic) extractDeclarations(filePath, fileID string, lines []string, g *graph.Graph) error {
	for i, line := range lines {
		r, name, ok := declarationRules.match(line)
		if !ok {
			continue
		}
		symbolID := graph.SymbolID(filePath, name)
		g.EnsureNode(symbolID, name, r.kind, graph.MetaOf("line", strconv.Itoa(i+1), "file", filePath))
		if _, err := g.Connect(fileID, symbolID, graph.EdgeKindContains, graph.Meta{}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Heuristic) extractCalls(filePath, fileID string, lines []string, g *graph.Graph) error {
	for i, line := range lines {
		lineMeta := graph.MetaOf("line", strconv.Itoa(i+1))
		for _, name := range callNames(line) {
			calleeID := graph.AnySymbolID(name)
			g.EnsureNode(calleeID, name, graph.NodeKindFunction, graph.Meta{})
			if _, err := g.Connect(fileID, calleeID, graph.EdgeKindCalls, lineMeta); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Heuristic) extractResources(filePath, fileID string, lines []string, g *graph.Graph) error {
	for i, line := range lines {
		matches := resourcePattern.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		access, hasAccess := h.accessKind(line)
		lineMeta := graph.MetaOf("line", strconv.Itoa(i+1))
		for _, m := range matches {
			resourceID := graph.ResourceID(m[1])
			g.EnsureNode(resourceID, m[1], graph.NodeKindResource, graph.Meta{})
			if !hasAccess {
				continue
			}
			if _, err := g.Connect(fileID, resourceID, access, lineMeta); err != nil {
				return err
			}
		}
	}
	return nil
}

// accessKind classifies a line by its leading token: the first word before the first "("
func (h *Heuristic) accessKind(line string) (graph.EdgeKind, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(line), "(")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return 0, false
	}
	verb := strings.ToLower(fields[0])
	if _, ok := h.writeVerbs[verb]; ok {
		return graph.EdgeKindWrites, true
	}
	if _, ok := h.readVerbs[verb]; ok {
		return graph.EdgeKindReads, true
	}
	return 0, false
}
