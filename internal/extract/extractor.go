// Package extract defines the extractor contract and the built-in extractors
// that turn one file's text into graph nodes and edges.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/zheng/codekg/internal/graph"
)

// Extractor inspects a single file and contributes nodes and edges to a shared graph.
//
// Supports must be cheap, must not mutate anything and must accept any input,
// including empty or binary-looking text. Extract may be called repeatedly with the
// same input and must converge on the same graph; it may only rely on nodes it
// creates itself.
type Extractor interface {
	Name() string
	Supports(filePath, text string) bool
	Extract(filePath, text string, g *graph.Graph) error
}

// LanguageHinter is implemented by extractors that can label a file's language
type LanguageHinter interface {
	LanguageHint(filePath string) string
}

// UnknownLanguage is reported when no hint is available
const UnknownLanguage = "unknown"

// LanguageOf returns the extractor's language hint for filePath, or UnknownLanguage
func LanguageOf(e Extractor, filePath string) string {
	if h, ok := e.(LanguageHinter); ok {
		if lang := h.LanguageHint(filePath); lang != "" {
			return lang
		}
	}
	return UnknownLanguage
}

var extensionLanguages = map[string]string{
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".go":    "go",
	".java":  "java",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".kt":    "kotlin",
	".lua":   "lua",
	".php":   "php",
	".pl":    "perl",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".scala": "scala",
	".sh":    "shell",
	".swift": "swift",
	".ts":    "typescript",
	".tsx":   "typescript",
	".zig":   "zig",
}

// languageByExtension guesses a language label from the file extension
func languageByExtension(filePath string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(filePath))]
}

// ensureFileNode creates the file node shared by every extractor
func ensureFileNode(g *graph.Graph, filePath string) string {
	id := graph.FileID(filePath)
	g.EnsureNode(id, filepath.Base(filePath), graph.NodeKindFile, graph.MetaOf("path", filePath))
	return id
}
