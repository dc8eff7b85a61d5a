package server

import (
	"maps"
	"slices"

	"diagramd/internal/action"
	"diagramd/internal/domain"
)

// State is an immutable snapshot of a server's diagram state handed to
// capabilities. The model it references is the live model and must be
// treated as read-only.
type State struct {
	clientID string
	options  *action.Options
	model    *domain.Element
	revision int
	expanded map[string]struct{}
	selected map[string]struct{}
}

// ClientID returns the id of the client attached to the server
func (s *State) ClientID() string { return s.clientID }

// Options returns the options received with the client's model requests
func (s *State) Options() *action.Options { return s.options }

// CurrentModel returns the current model
func (s *State) CurrentModel() *domain.Element { return s.model }

// Revision returns the revision of the current model
func (s *State) Revision() int { return s.revision }

// ExpandedElements returns the expanded element ids in sorted order
func (s *State) ExpandedElements() []string { return sortedIDs(s.expanded) }

// SelectedElements returns the selected element ids in sorted order
func (s *State) SelectedElements() []string { return sortedIDs(s.selected) }

// IsExpanded reports whether the element is expanded
func (s *State) IsExpanded(id string) bool {
	_, ok := s.expanded[id]
	return ok
}

// IsSelected reports whether the element is selected
func (s *State) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

func sortedIDs(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}

// retainIDs removes ids not in keep and reports whether set changed
func retainIDs(set, keep map[string]struct{}) bool {
	changed := false
	for id := range set {
		if _, ok := keep[id]; !ok {
			delete(set, id)
			changed = true
		}
	}
	return changed
}
