// Package codec reads and writes diagram model trees.
package codec

import (
	"fmt"
	"io"

	"diagramd/internal/domain"
)

// Importer parses a model tree from a graph file format
type Importer interface {
	Parse(r io.Reader) (*domain.Element, error)
	Format() string
}

// Exporter writes a model tree in a graph file format
type Exporter interface {
	Export(root *domain.Element, w io.Writer) error
	Format() string
}

// ForFormat returns the codec registered for a format name
func ForFormat(format string) (Importer, Exporter, error) {
	switch format {
	case "json":
		c := NewJSONCodec()
		return c, c, nil
	case "yaml", "yml":
		c := NewYAMLCodec()
		return c, c, nil
	}
	return nil, nil, fmt.Errorf("unsupported graph format %q", format)
}

// Validate checks that a tree can be served: every element has a type and an
// id, ids are unique, and edges reference elements of the same tree.
func Validate(root *domain.Element) error {
	if root == nil {
		return fmt.Errorf("empty graph")
	}

	seen := make(map[string]struct{})
	var edges []*domain.Element
	var err error
	domain.Walk(root, func(e *domain.Element) bool {
		switch {
		case e.Type == "":
			err = fmt.Errorf("element %q has no type", e.ID)
		case e.ID == "":
			err = fmt.Errorf("element of type %q has no id", e.Type)
		}
		if err != nil {
			return false
		}
		if _, dup := seen[e.ID]; dup {
			err = fmt.Errorf("duplicate element id %q", e.ID)
			return false
		}
		seen[e.ID] = struct{}{}
		if e.IsEdge() {
			edges = append(edges, e)
		}
		return true
	})
	if err != nil {
		return err
	}

	for _, e := range edges {
		for _, end := range []string{e.SourceID, e.TargetID} {
			if _, ok := seen[end]; !ok {
				return fmt.Errorf("edge %q references unknown element %q", e.ID, end)
			}
		}
	}
	return nil
}
