package domain

// Point is a position or an alignment offset in diagram coordinates
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Dimension is the size of a bounds-aware element
type Dimension struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Bounds combines a position and a size
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementAndBounds is the client-computed geometry of one element
type ElementAndBounds struct {
	ElementID   string     `json:"elementId"`
	NewPosition *Point     `json:"newPosition,omitempty"`
	NewSize     *Dimension `json:"newSize,omitempty"`
}

// ElementAndAlignment is the client-computed alignment of one element
type ElementAndAlignment struct {
	ElementID    string `json:"elementId"`
	NewAlignment *Point `json:"newAlignment,omitempty"`
}

// NewPoint creates a new point
func NewPoint(x, y float64) *Point {
	return &Point{X: x, Y: y}
}

// NewDimension creates a new dimension
func NewDimension(width, height float64) *Dimension {
	return &Dimension{Width: width, Height: height}
}
