package graph

// Edge represents a directed, typed relationship between two node ids.
// Several edges may join the same pair as long as kind or metadata differ.
type Edge struct {
	Source string
	Target string
	Kind   EdgeKind
	Meta   Meta
}

// NewEdge builds an Edge with metadata taken from m
func NewEdge(source, target string, kind EdgeKind, m map[string]string) Edge {
	return Edge{Source: source, Target: target, Kind: kind, Meta: NewMeta(m)}
}

// Equal reports structural equality on all fields
func (e Edge) Equal(other Edge) bool {
	return e.key() == other.key()
}

// edgeKey is the comparable identity of an Edge used by the adjacency sets
type edgeKey struct {
	source string
	target string
	kind   EdgeKind
	meta   string
}

func (e Edge) key() edgeKey {
	return edgeKey{source: e.Source, target: e.Target, kind: e.Kind, meta: e.Meta.String()}
}

// Record returns the serialization form of e
func (e Edge) Record() EdgeRecord {
	return EdgeRecord{Source: e.Source, Target: e.Target, Kind: e.Kind.String(), Meta: e.Meta.Map()}
}
