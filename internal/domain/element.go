package domain

import "strings"

// Common element types
const (
	TypeGraph = "graph"
	TypeNode  = "node"
	TypeEdge  = "edge"
	TypeLabel = "label"
	TypeHTML  = "html"

	// TypeNone marks the placeholder model a server holds before any model was set
	TypeNone = "NONE"
)

// Element is a node of the diagram model tree.
//
// One struct covers every element kind: geometry fields are only meaningful
// for bounds-aware elements, SourceID/TargetID only for edges, and Revision
// only on the root.
type Element struct {
	Type       string     `json:"type" yaml:"type"`
	ID         string     `json:"id" yaml:"id"`
	Children   []*Element `json:"children,omitempty" yaml:"children,omitempty"`
	CSSClasses []string   `json:"cssClasses,omitempty" yaml:"css_classes,omitempty"`

	Position  *Point     `json:"position,omitempty" yaml:"position,omitempty"`
	Size      *Dimension `json:"size,omitempty" yaml:"size,omitempty"`
	Alignment *Point     `json:"alignment,omitempty" yaml:"alignment,omitempty"`

	SourceID      string  `json:"sourceId,omitempty" yaml:"source_id,omitempty"`
	TargetID      string  `json:"targetId,omitempty" yaml:"target_id,omitempty"`
	RoutingPoints []Point `json:"routingPoints,omitempty" yaml:"routing_points,omitempty"`

	// CanvasBounds anchors a popup root at the hovered element
	CanvasBounds *Bounds `json:"canvasBounds,omitempty" yaml:"canvas_bounds,omitempty"`

	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// Content is pre-rendered markup for popup models
	Content string `json:"code,omitempty" yaml:"code,omitempty"`

	Revision int `json:"revision,omitempty" yaml:"-"`
}

// NewRoot creates a root element with no children
func NewRoot(elementType, id string) *Element {
	return &Element{
		Type:     elementType,
		ID:       id,
		Children: make([]*Element, 0),
	}
}

// NewNode creates a node element with the given size
func NewNode(id string, width, height float64) *Element {
	return &Element{
		Type: TypeNode,
		ID:   id,
		Size: NewDimension(width, height),
	}
}

// NewEdge creates an edge element between two elements
func NewEdge(id, sourceID, targetID string) *Element {
	return &Element{
		Type:     TypeEdge,
		ID:       id,
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// EmptyRoot returns the placeholder model held before any model was set
func EmptyRoot() *Element {
	return &Element{Type: TypeNone, ID: "ROOT"}
}

// Add appends children and returns the element for chaining
func (e *Element) Add(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// IsNode reports whether the element type is "node" or a "node:" subtype
func (e *Element) IsNode() bool {
	return isKind(e.Type, TypeNode)
}

// IsEdge reports whether the element type is "edge" or an "edge:" subtype
func (e *Element) IsEdge() bool {
	return isKind(e.Type, TypeEdge)
}

// Bounds returns the element's bounds, zero-valued where geometry is missing
func (e *Element) Bounds() Bounds {
	var b Bounds
	if e.Position != nil {
		b.X, b.Y = e.Position.X, e.Position.Y
	}
	if e.Size != nil {
		b.Width, b.Height = e.Size.Width, e.Size.Height
	}
	return b
}

func isKind(elementType, kind string) bool {
	return elementType == kind || strings.HasPrefix(elementType, kind+":")
}
