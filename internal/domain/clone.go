package domain

// Clone returns a deep copy of the tree. The copy shares no pointers, slices
// or maps with the original.
func Clone(e *Element) *Element {
	if e == nil {
		return nil
	}
	c := *e
	if e.Children != nil {
		c.Children = make([]*Element, len(e.Children))
		for i, child := range e.Children {
			c.Children[i] = Clone(child)
		}
	}
	if e.CSSClasses != nil {
		c.CSSClasses = append([]string(nil), e.CSSClasses...)
	}
	if e.RoutingPoints != nil {
		c.RoutingPoints = append([]Point(nil), e.RoutingPoints...)
	}
	if e.Position != nil {
		p := *e.Position
		c.Position = &p
	}
	if e.Size != nil {
		s := *e.Size
		c.Size = &s
	}
	if e.Alignment != nil {
		a := *e.Alignment
		c.Alignment = &a
	}
	if e.CanvasBounds != nil {
		b := *e.CanvasBounds
		c.CanvasBounds = &b
	}
	return &c
}

// DeepCloner is the default model cloner
type DeepCloner struct{}

// Clone returns a deep copy of root
func (DeepCloner) Clone(root *Element) *Element {
	return Clone(root)
}
