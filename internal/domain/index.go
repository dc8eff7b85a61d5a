package domain

// Walk visits root and its descendants depth-first in pre-order, children in
// stored order. Returning false from fn stops the walk. Nil children are skipped.
func Walk(root *Element, fn func(*Element) bool) {
	if root == nil {
		return
	}
	stack := []*Element{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(e) {
			return
		}
		for i := len(e.Children) - 1; i >= 0; i-- {
			if e.Children[i] != nil {
				stack = append(stack, e.Children[i])
			}
		}
	}
}

// Find returns the first element with the given id, or nil
func Find(root *Element, id string) *Element {
	var found *Element
	Walk(root, func(e *Element) bool {
		if e.ID == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// AllIDs returns the set of element ids in the tree
func AllIDs(root *Element) map[string]struct{} {
	ids := make(map[string]struct{})
	Walk(root, func(e *Element) bool {
		ids[e.ID] = struct{}{}
		return true
	})
	return ids
}

// Index is an id lookup table over one tree. It does not track later
// mutations of the tree's structure.
type Index struct {
	byID map[string]*Element
}

// NewIndex builds an index of the tree. If ids are duplicated the first
// element in traversal order wins.
func NewIndex(root *Element) *Index {
	idx := &Index{byID: make(map[string]*Element)}
	Walk(root, func(e *Element) bool {
		if _, ok := idx.byID[e.ID]; !ok {
			idx.byID[e.ID] = e
		}
		return true
	})
	return idx
}

// Get returns the element with the given id, or nil
func (idx *Index) Get(id string) *Element {
	return idx.byID[id]
}

// Contains reports whether the id is present
func (idx *Index) Contains(id string) bool {
	_, ok := idx.byID[id]
	return ok
}

// Len returns the number of indexed elements
func (idx *Index) Len() int {
	return len(idx.byID)
}

// IDs returns the indexed ids as a set
func (idx *Index) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(idx.byID))
	for id := range idx.byID {
		ids[id] = struct{}{}
	}
	return ids
}
