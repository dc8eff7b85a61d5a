package server

import (
	"diagramd/internal/action"
	"diagramd/internal/domain"
)

// LayoutEngine computes geometry for a model in place
type LayoutEngine interface {
	Layout(root *domain.Element, cause action.Action) error
}

// PopupModelFactory builds the hover popup for an element. A nil model means
// the element has no popup.
type PopupModelFactory interface {
	CreatePopupModel(element *domain.Element, request *action.RequestPopupModelAction, state *State) (*domain.Element, error)
}

// SelectionListener is notified when the selection changed
type SelectionListener interface {
	SelectionChanged(cause action.Action, state *State)
}

// ExpansionListener is notified after collapse/expand actions
type ExpansionListener interface {
	ExpansionChanged(cause action.Action, state *State)
}

// OpenListener is notified when the user opens an element
type OpenListener interface {
	ElementOpened(a *action.OpenAction, state *State)
}

// ModelUpdateListener is notified whenever a model is submitted to the
// client. It is called with the server's state lock held and must not call
// back into the server.
type ModelUpdateListener interface {
	ModelSubmitted(root *domain.Element, state *State)
}

// ModelCloner produces deep copies of models
type ModelCloner interface {
	Clone(root *domain.Element) *domain.Element
}

// RemoteEndpoint delivers outbound messages to the client transport. It is
// called with server locks held and must neither block nor call back into
// the server.
type RemoteEndpoint func(msg action.Message)

// SelectionListenerFunc adapts a function to SelectionListener
type SelectionListenerFunc func(cause action.Action, state *State)

func (f SelectionListenerFunc) SelectionChanged(cause action.Action, state *State) { f(cause, state) }

// ExpansionListenerFunc adapts a function to ExpansionListener
type ExpansionListenerFunc func(cause action.Action, state *State)

func (f ExpansionListenerFunc) ExpansionChanged(cause action.Action, state *State) { f(cause, state) }

// OpenListenerFunc adapts a function to OpenListener
type OpenListenerFunc func(a *action.OpenAction, state *State)

func (f OpenListenerFunc) ElementOpened(a *action.OpenAction, state *State) { f(a, state) }

// ModelUpdateListenerFunc adapts a function to ModelUpdateListener
type ModelUpdateListenerFunc func(root *domain.Element, state *State)

func (f ModelUpdateListenerFunc) ModelSubmitted(root *domain.Element, state *State) { f(root, state) }

type nopListener struct{}

func (nopListener) SelectionChanged(action.Action, *State)   {}
func (nopListener) ExpansionChanged(action.Action, *State)   {}
func (nopListener) ElementOpened(*action.OpenAction, *State) {}
func (nopListener) ModelSubmitted(*domain.Element, *State)   {}
