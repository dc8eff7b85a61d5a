package server

import (
	"fmt"

	"github.com/golang/glog"

	"diagramd/internal/action"
	"diagramd/internal/domain"
)

func (s *DiagramServer) registerDefaultHandlers() {
	s.Handle(action.KindRequestModel, s.handleRequestModel)
	s.Handle(action.KindComputedBounds, s.handleComputedBounds)
	s.Handle(action.KindRequestPopupModel, s.handleRequestPopupModel)
	s.Handle(action.KindSelect, s.handleSelect)
	s.Handle(action.KindSelectAll, s.handleSelectAll)
	s.Handle(action.KindCollapseExpand, s.handleCollapseExpand)
	s.Handle(action.KindCollapseExpandAll, s.handleCollapseExpandAll)
	s.Handle(action.KindOpen, s.handleOpen)
	s.Handle(action.KindLayout, s.handleLayout)
}

func (s *DiagramServer) handleRequestModel(a action.Action) error {
	req := a.(*action.RequestModelAction)
	s.mu.Lock()
	s.options.Merge(req.Options)
	root := s.model
	s.mu.Unlock()
	return s.submitModel(root, false, req)
}

func (s *DiagramServer) handleComputedBounds(a action.Action) error {
	cb := a.(*action.ComputedBoundsAction)

	s.submitMu.Lock()
	s.mu.Lock()
	if cb.Revision == nil || *cb.Revision != s.revision {
		s.mu.Unlock()
		s.submitMu.Unlock()
		glog.V(1).Infof("[s]%s discarding bounds for stale revision", s.clientID)
		return nil
	}
	root := s.model
	domain.ApplyBounds(root, cb.Bounds, cb.Alignments)
	var cause action.Action = cb
	if p := s.boundsCause; p != nil && p.revision == s.revision {
		cause = p.cause
	}
	s.mu.Unlock()
	s.submitMu.Unlock()

	return s.doSubmitModel(root, true, cause)
}

func (s *DiagramServer) handleRequestPopupModel(a action.Action) error {
	req := a.(*action.RequestPopupModelAction)
	factory := s.popupFactory
	if factory == nil {
		s.reject(req, "popup models are not supported", req.ElementID)
		return nil
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	state := s.State()
	element := domain.Find(state.CurrentModel(), req.ElementID)
	if element == nil {
		s.reject(req, "element not found", req.ElementID)
		return nil
	}
	popup, err := factory.CreatePopupModel(element, req, state)
	if err != nil {
		return fmt.Errorf("popup for %s: %w", req.ElementID, err)
	}
	if popup == nil {
		s.reject(req, "no popup model", req.ElementID)
		return nil
	}
	s.Dispatch(&action.SetPopupModelAction{
		Response: action.Response{ResponseID: req.RequestID},
		NewRoot:  popup,
	})
	return nil
}

func (s *DiagramServer) handleSelect(a action.Action) error {
	sel := a.(*action.SelectAction)
	s.mu.Lock()
	changed := false
	for _, id := range sel.DeselectedElementsIDs {
		if _, ok := s.selected[id]; ok {
			delete(s.selected, id)
			changed = true
		}
	}
	ids := domain.AllIDs(s.model)
	for _, id := range sel.SelectedElementsIDs {
		if _, known := ids[id]; !known {
			continue
		}
		if _, ok := s.selected[id]; !ok {
			s.selected[id] = struct{}{}
			changed = true
		}
	}
	state := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.selectionListener.SelectionChanged(sel, state)
	}
	return nil
}

func (s *DiagramServer) handleSelectAll(a action.Action) error {
	sel := a.(*action.SelectAllAction)
	s.mu.Lock()
	before := len(s.selected)
	if sel.Select {
		s.selected = domain.AllIDs(s.model)
	} else {
		s.selected = make(map[string]struct{})
	}
	changed := len(s.selected) != before
	state := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.selectionListener.SelectionChanged(sel, state)
	}
	return nil
}

func (s *DiagramServer) handleCollapseExpand(a action.Action) error {
	ce := a.(*action.CollapseExpandAction)
	s.mu.Lock()
	ids := domain.AllIDs(s.model)
	for _, id := range ce.ExpandIDs {
		if _, known := ids[id]; known {
			s.expanded[id] = struct{}{}
		}
	}
	for _, id := range ce.CollapseIDs {
		delete(s.expanded, id)
	}
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.expansionListener.ExpansionChanged(ce, state)
	return nil
}

func (s *DiagramServer) handleCollapseExpandAll(a action.Action) error {
	ce := a.(*action.CollapseExpandAllAction)
	s.mu.Lock()
	if ce.Expand {
		s.expanded = domain.AllIDs(s.model)
	} else {
		s.expanded = make(map[string]struct{})
	}
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.expansionListener.ExpansionChanged(ce, state)
	return nil
}

func (s *DiagramServer) handleOpen(a action.Action) error {
	s.openListener.ElementOpened(a.(*action.OpenAction), s.State())
	return nil
}

func (s *DiagramServer) handleLayout(a action.Action) error {
	if _, server := s.layoutRequirements(); !server {
		glog.V(2).Infof("[s]%s ignoring layout request, server layout is off", s.clientID)
		return nil
	}
	root, base := s.cloneCurrent()
	if !s.swapModel(root, base) {
		glog.V(1).Infof("[s]%s dropping layout of stale revision %d", s.clientID, base)
		return nil
	}
	return s.submitModel(root, true, a)
}

// LayoutModel lays out a copy of the current model with cause and publishes
// it as an update. The engine sees cause, so callers can pass actions that
// narrow the layout, e.g. to a selection.
func (s *DiagramServer) LayoutModel(cause action.Action) error {
	engine := s.layoutEngine
	if engine == nil {
		return ErrNoLayoutEngine
	}
	root, base := s.cloneCurrent()
	if err := engine.Layout(root, cause); err != nil {
		return fmt.Errorf("layout of %s failed: %w", root.ID, err)
	}
	if !s.swapModel(root, base) {
		glog.V(1).Infof("[s]%s dropping layout of stale revision %d", s.clientID, base)
		return nil
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.publishLocked(root, true, cause)
	return nil
}

// cloneCurrent copies the live model and returns it with its revision
func (s *DiagramServer) cloneCurrent() (*domain.Element, int) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.mu.Lock()
	model, revision := s.model, s.revision
	s.mu.Unlock()
	return s.cloner.Clone(model), revision
}

// Snapshot returns a deep copy of the current model that is safe to read
// concurrently with publications
func (s *DiagramServer) Snapshot() *domain.Element {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	return s.cloner.Clone(s.Model())
}
