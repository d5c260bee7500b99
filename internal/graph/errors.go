package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an edge references a node that was never added.
	// It signals a bug in the extractor that produced the edge, not bad input.
	ErrNodeNotFound = errors.New("node not found")

	// ErrUnknownKind is returned when parsing a node or edge kind label fails.
	ErrUnknownKind = errors.New("unknown kind")
)

// MissingNodeError reports which endpoint of an edge was missing
type MissingNodeError struct {
	Edge Edge
	ID   string
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("add edge %s -[%s]-> %s: %s %q", e.Edge.Source, e.Edge.Kind, e.Edge.Target, ErrNodeNotFound, e.ID)
}

func (e *MissingNodeError) Unwrap() error {
	return ErrNodeNotFound
}
