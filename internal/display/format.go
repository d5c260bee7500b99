package display

import (
	"fmt"
	"strings"

	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/storage"
)

// ShortID drops the scheme and file path from a node id.
// e.g., "symbol:src/app/main.py:run" -> "run"
// e.g., "file:src/app/main.py" -> "main.py"
func ShortID(id string) string {
	scheme, rest, ok := strings.Cut(id, ":")
	if !ok {
		return id
	}
	switch scheme {
	case "symbol":
		if idx := strings.LastIndex(rest, ":"); idx >= 0 {
			return rest[idx+1:]
		}
	case "file":
		if idx := strings.LastIndex(rest, "/"); idx >= 0 {
			return rest[idx+1:]
		}
	}
	return rest
}

// Location renders a node's file:line, or its kind when it has no position
func Location(n graph.Node) string {
	file, hasFile := n.Meta.Get("file")
	if !hasFile {
		file, hasFile = n.Meta.Get("path")
	}
	if !hasFile {
		return "(" + n.Kind.String() + ")"
	}
	if line, ok := n.Meta.Get("line"); ok {
		return file + ":" + line
	}
	return file
}

// CalcTreeMaxWidth calculates the maximum label width and depth for alignment in the tree.
func CalcTreeMaxWidth(tree []*storage.TreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(label(node))
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatTree renders a neighbor tree with box-drawing characters, one node per line
// followed by its location.
func FormatTree(tree []*storage.TreeNode) string {
	maxWidth, maxDepth := 0, 0
	CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)
	return formatTree(tree, "", maxWidth, maxDepth, 0)
}

func formatTree(tree []*storage.TreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		padding := maxWidth + (maxDepth-currentDepth)*4
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, padding, label(node), Location(node.Node)))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(formatTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}

func label(node *storage.TreeNode) string {
	return fmt.Sprintf("[%s] %s", node.Via, ShortID(node.Node.ID))
}
