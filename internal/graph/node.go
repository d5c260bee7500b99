package graph

// Node represents an entity in the knowledge graph: a file, symbol, module or resource.
// Nodes are values; the graph never mutates a stored node in place.
type Node struct {
	ID   string
	Name string // display label, not necessarily unique
	Kind NodeKind
	Meta Meta
}

// NewNode builds a Node with metadata taken from m
func NewNode(id, name string, kind NodeKind, m map[string]string) Node {
	return Node{ID: id, Name: name, Kind: kind, Meta: NewMeta(m)}
}

// Equal reports structural equality on all fields
func (n Node) Equal(other Node) bool {
	return n.ID == other.ID && n.Name == other.Name && n.Kind == other.Kind && n.Meta.Equal(other.Meta)
}

// Record returns the serialization form of n
func (n Node) Record() NodeRecord {
	return NodeRecord{ID: n.ID, Name: n.Name, Kind: n.Kind.String(), Meta: n.Meta.Map()}
}
