package server

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang/glog"

	"diagramd/internal/action"
	"diagramd/internal/domain"
)

// layoutRequirements resolves where layout happens for the next publication
func (s *DiagramServer) layoutRequirements() (client, server bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client = s.boolOption(OptionNeedsClientLayout, s.settings.NeedsClientLayout)
	server = s.boolOption(OptionNeedsServerLayout, s.settings.NeedsServerLayout)
	if server && s.layoutEngine == nil {
		glog.Errorf("[s]%s server layout requested but no layout engine is configured", s.clientID)
		server = false
	}
	return client, server
}

func (s *DiagramServer) boolOption(key string, def bool) bool {
	v, ok := s.options.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		glog.Warningf("[s]%s invalid %s option %q, using %t", s.clientID, key, v, def)
		return def
	}
	return b
}

// submitModel publishes root, going through client and server layout first
// when the client options ask for them
func (s *DiagramServer) submitModel(root *domain.Element, update bool, cause action.Action) error {
	client, server := s.layoutRequirements()
	switch {
	case client && !server:
		s.requestClientBounds(root, cause)
		return nil
	case client:
		s.requestBoundsCorrelated(root, cause)
		return nil
	default:
		return s.doSubmitModel(root, update, cause)
	}
}

// requestClientBounds asks the client to measure root. The computedBounds
// answer publishes the model.
func (s *DiagramServer) requestClientBounds(root *domain.Element, cause action.Action) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	if root.Revision != s.revision {
		s.mu.Unlock()
		glog.V(1).Infof("[s]%s dropping bounds request for stale revision %d", s.clientID, root.Revision)
		return
	}
	s.boundsCause = &pendingBounds{revision: root.Revision, cause: cause}
	ids := domain.AllIDs(root)
	retainIDs(s.selected, ids)
	retainIDs(s.expanded, ids)
	s.modelListener.ModelSubmitted(root, s.snapshotLocked())
	s.mu.Unlock()

	s.Dispatch(&action.RequestBoundsAction{NewRoot: root})
}

// requestBoundsCorrelated sends a correlated bounds request and publishes
// once the client answered
func (s *DiagramServer) requestBoundsCorrelated(root *domain.Element, cause action.Action) {
	s.submitMu.Lock()
	f := s.Request(&action.RequestBoundsAction{NewRoot: root})
	s.submitMu.Unlock()

	f.Then(func(resp action.ResponseAction, err error) {
		if err == nil {
			if cb, ok := resp.(*action.ComputedBoundsAction); ok {
				s.applyBoundsIfCurrent(root, cb)
				err = s.doSubmitModel(root, true, cause)
			} else {
				err = fmt.Errorf("unexpected bounds response %s", resp.Kind())
			}
		}
		if err != nil {
			s.submitFailed(cause, err)
		}
	})
}

func (s *DiagramServer) applyBoundsIfCurrent(root *domain.Element, cb *action.ComputedBoundsAction) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if root.Revision != s.revision {
		return
	}
	n := domain.ApplyBounds(root, cb.Bounds, cb.Alignments)
	glog.V(2).Infof("[s]%s applied client bounds to %d elements", s.clientID, n)
}

func (s *DiagramServer) submitFailed(cause action.Action, err error) {
	if errors.Is(err, ErrServerClosed) {
		glog.V(1).Infof("[s]%s publication abandoned: %v", s.clientID, err)
		return
	}
	glog.Errorf("[s]%s publication failed: %v", s.clientID, err)
	if id := action.RequestIDOf(cause); id != "" {
		s.Dispatch(action.NewReject(id, err.Error(), ""))
	}
}

// doSubmitModel runs server layout if required and publishes root
func (s *DiagramServer) doSubmitModel(root *domain.Element, update bool, cause action.Action) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	if _, server := s.layoutRequirements(); server {
		if err := s.layoutEngine.Layout(root, cause); err != nil {
			return fmt.Errorf("layout of %s failed: %w", root.ID, err)
		}
	}
	s.publishLocked(root, update, cause)
	return nil
}

// publishLocked sends root to the client unless a newer revision replaced
// it. submitMu must be held.
func (s *DiagramServer) publishLocked(root *domain.Element, update bool, cause action.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if root.Revision != s.revision {
		glog.V(1).Infof("[s]%s dropping stale revision %d, current is %d", s.clientID, root.Revision, s.revision)
		return
	}

	var msg action.Action
	if rm, ok := cause.(*action.RequestModelAction); ok && rm.RequestID != "" {
		msg = &action.SetModelAction{Response: action.Response{ResponseID: rm.RequestID}, NewRoot: root}
	} else if update && root.Type == s.lastSubmittedType {
		msg = &action.UpdateModelAction{NewRoot: root}
	} else {
		msg = &action.SetModelAction{NewRoot: root}
	}
	s.lastSubmittedType = root.Type
	s.boundsCause = nil

	ids := domain.AllIDs(root)
	retainIDs(s.selected, ids)
	retainIDs(s.expanded, ids)
	s.modelListener.ModelSubmitted(root, s.snapshotLocked())

	glog.V(2).Infof("[s]%s publishing %s revision %d", s.clientID, msg.Kind(), root.Revision)
	s.Dispatch(msg)
}

// reject answers a request with a rejection
func (s *DiagramServer) reject(req action.RequestAction, message, detail string) {
	id := req.GetRequestID()
	if id == "" {
		glog.Warningf("[s]%s cannot reject %s without request id: %s", s.clientID, req.Kind(), message)
		return
	}
	s.Dispatch(action.NewReject(id, message, detail))
}
