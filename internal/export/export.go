// Package export renders graphs as JSON, Graphviz DOT, Mermaid flowcharts and
// Markdown reference documents. Every renderer walks the canonical snapshot,
// so equal graphs always render to identical bytes.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zheng/codekg/internal/graph"
)

// ErrUnknownFormat is returned for an unsupported output format
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an output format
type Format string

const (
	FormatJSON     Format = "json"
	FormatDOT      Format = "dot"
	FormatMermaid  Format = "mermaid"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats
func Formats() []Format {
	return []Format{FormatJSON, FormatDOT, FormatMermaid, FormatMarkdown}
}

// ParseFormat validates a format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Write renders g to w in the given format
func Write(w io.Writer, g *graph.Graph, format Format) error {
	switch format {
	case FormatJSON:
		return JSON(w, g)
	case FormatDOT:
		return DOT(w, g)
	case FormatMermaid:
		return Mermaid(w, g)
	case FormatMarkdown:
		return Markdown(w, g, DefaultMarkdownOptions())
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
