package domain

// ApplyBounds writes client-computed positions, sizes and alignments into the
// tree. Entries referencing unknown ids are ignored. It returns the number of
// elements that were changed.
func ApplyBounds(root *Element, bounds []ElementAndBounds, alignments []ElementAndAlignment) int {
	idx := NewIndex(root)
	changed := make(map[string]struct{})
	for _, b := range bounds {
		e := idx.Get(b.ElementID)
		if e == nil {
			continue
		}
		if b.NewPosition != nil {
			e.Position = &Point{X: b.NewPosition.X, Y: b.NewPosition.Y}
			changed[e.ID] = struct{}{}
		}
		if b.NewSize != nil {
			e.Size = &Dimension{Width: b.NewSize.Width, Height: b.NewSize.Height}
			changed[e.ID] = struct{}{}
		}
	}
	for _, a := range alignments {
		e := idx.Get(a.ElementID)
		if e == nil || a.NewAlignment == nil {
			continue
		}
		e.Alignment = &Point{X: a.NewAlignment.X, Y: a.NewAlignment.Y}
		changed[e.ID] = struct{}{}
	}
	return len(changed)
}

// CopyLayoutData copies position and size from elements of from into the
// elements of to that share an id and have no geometry of their own.
func CopyLayoutData(from, to *Element) {
	if from == nil || to == nil {
		return
	}
	idx := NewIndex(from)
	Walk(to, func(e *Element) bool {
		old := idx.Get(e.ID)
		if old == nil {
			return true
		}
		if e.Position == nil && old.Position != nil {
			p := *old.Position
			e.Position = &p
		}
		if e.Size == nil && old.Size != nil {
			s := *old.Size
			e.Size = &s
		}
		return true
	})
}
