package graph

import (
	"sort"
	"strconv"
	"strings"
)

// Pair is a single metadata entry
type Pair struct {
	Key   string
	Value string
}

// Meta is an immutable set of key/value pairs kept sorted by key.
// Two Meta values built from the same entries are equal regardless of insertion order.
type Meta struct {
	pairs []Pair
	key   string // canonical encoding, used for equality and set membership
}

// NewMeta builds a Meta from a map. A nil or empty map yields the empty Meta.
func NewMeta(m map[string]string) Meta {
	if len(m) == 0 {
		return Meta{}
	}
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return Meta{pairs: pairs, key: encodePairs(pairs)}
}

// MetaOf builds a Meta from alternating key/value arguments.
// A trailing key without a value is ignored.
func MetaOf(kv ...string) Meta {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return NewMeta(m)
}

func encodePairs(pairs []Pair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(p.Key))
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(p.Value))
	}
	return sb.String()
}

// Get returns the value stored under key
func (m Meta) Get(key string) (string, bool) {
	i := sort.Search(len(m.pairs), func(i int) bool { return m.pairs[i].Key >= key })
	if i < len(m.pairs) && m.pairs[i].Key == key {
		return m.pairs[i].Value, true
	}
	return "", false
}

// Len returns the number of entries
func (m Meta) Len() int {
	return len(m.pairs)
}

// Pairs returns a copy of the entries in key order
func (m Meta) Pairs() []Pair {
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// Map returns a copy of the entries as a map (never nil)
func (m Meta) Map() map[string]string {
	out := make(map[string]string, len(m.pairs))
	for _, p := range m.pairs {
		out[p.Key] = p.Value
	}
	return out
}

// Equal reports whether both sets hold the same entries
func (m Meta) Equal(other Meta) bool {
	return m.key == other.key
}

// String returns the canonical encoding
func (m Meta) String() string {
	return m.key
}
