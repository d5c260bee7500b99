package graph

import "fmt"

// NodeKind represents the category of an entity in the knowledge graph
type NodeKind uint8

const (
	NodeKindUnknown NodeKind = iota
	NodeKindModule
	NodeKindType
	NodeKindClass
	NodeKindInterface
	NodeKindFunction
	NodeKindMethod
	NodeKindVariable
	NodeKindConstant
	NodeKindEnum
	NodeKindPackage
	NodeKindFile
	NodeKindNamespace
	NodeKindResource
	NodeKindEndpoint
)

var nodeKindLabels = [...]string{
	NodeKindUnknown:   "unknown",
	NodeKindModule:    "module",
	NodeKindType:      "type",
	NodeKindClass:     "class",
	NodeKindInterface: "interface",
	NodeKindFunction:  "function",
	NodeKindMethod:    "method",
	NodeKindVariable:  "variable",
	NodeKindConstant:  "constant",
	NodeKindEnum:      "enum",
	NodeKindPackage:   "package",
	NodeKindFile:      "file",
	NodeKindNamespace: "namespace",
	NodeKindResource:  "resource",
	NodeKindEndpoint:  "endpoint",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindLabels) {
		return nodeKindLabels[k]
	}
	return nodeKindLabels[NodeKindUnknown]
}

// MarshalText implements encoding.TextMarshaler
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseNodeKind maps a label back to its NodeKind
func ParseNodeKind(label string) (NodeKind, error) {
	for i, l := range nodeKindLabels {
		if l == label {
			return NodeKind(i), nil
		}
	}
	return NodeKindUnknown, fmt.Errorf("%w: node kind %q", ErrUnknownKind, label)
}

// EdgeKind represents the type of relationship between nodes
type EdgeKind uint8

const (
	EdgeKindContains EdgeKind = iota
	EdgeKindDefines
	EdgeKindCalls
	EdgeKindImports
	EdgeKindExtends
	EdgeKindImplements
	EdgeKindReferences
	EdgeKindReturns
	EdgeKindParam
	EdgeKindThrows
	EdgeKindReads
	EdgeKindWrites
	EdgeKindDecorates
	EdgeKindOverrides
)

var edgeKindLabels = [...]string{
	EdgeKindContains:   "contains",
	EdgeKindDefines:    "defines",
	EdgeKindCalls:      "calls",
	EdgeKindImports:    "imports",
	EdgeKindExtends:    "extends",
	EdgeKindImplements: "implements",
	EdgeKindReferences: "references",
	EdgeKindReturns:    "returns",
	EdgeKindParam:      "param",
	EdgeKindThrows:     "throws",
	EdgeKindReads:      "reads",
	EdgeKindWrites:     "writes",
	EdgeKindDecorates:  "decorates",
	EdgeKindOverrides:  "overrides",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindLabels) {
		return edgeKindLabels[k]
	}
	return fmt.Sprintf("edgekind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *EdgeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEdgeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseEdgeKind maps a label back to its EdgeKind
func ParseEdgeKind(label string) (EdgeKind, error) {
	for i, l := range edgeKindLabels {
		if l == label {
			return EdgeKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: edge kind %q", ErrUnknownKind, label)
}

// EdgeKinds lists every edge kind in declaration order
func EdgeKinds() []EdgeKind {
	kinds := make([]EdgeKind, len(edgeKindLabels))
	for i := range edgeKindLabels {
		kinds[i] = EdgeKind(i)
	}
	return kinds
}
