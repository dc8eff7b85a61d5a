package circlegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"diagramd/internal/action"
	"diagramd/internal/domain"
	"diagramd/internal/repository"
	"diagramd/internal/server"
)

// KindLayoutSelection is sent by the client's "layout selection" button
const KindLayoutSelection = "layoutSelection"

// LayoutSelectionAction asks the server to lay out the selected nodes. The
// client sends it empty; the server fills in the selection it requested.
type LayoutSelectionAction struct {
	SelectedIDs []string `json:"-"`
}

func (*LayoutSelectionAction) Kind() string { return KindLayoutSelection }

// LayoutSelection restricts the layout to the selected ids
func (a *LayoutSelectionAction) LayoutSelection() []string { return a.SelectedIDs }

// RegisterActions adds the example's actions to a codec registry
func RegisterActions(r *action.Registry) {
	r.Register(KindLayoutSelection, func() action.Action { return &LayoutSelectionAction{} })
}

// Install registers the example's handlers on s
func Install(s *server.DiagramServer) {
	s.Handle(KindLayoutSelection, layoutSelection(s))
}

func layoutSelection(s *server.DiagramServer) server.HandlerFunc {
	return func(action.Action) error {
		s.Request(&action.GetSelectionAction{}).Then(func(resp action.ResponseAction, err error) {
			if err != nil {
				glog.Warningf("[s]%s selection request failed: %v", s.ClientID(), err)
				return
			}
			result, ok := resp.(*action.SelectionResult)
			if !ok {
				glog.Warningf("[s]%s unexpected selection response %s", s.ClientID(), resp.Kind())
				return
			}
			cause := &LayoutSelectionAction{SelectedIDs: result.SelectedElementsIDs}
			if err := s.LayoutModel(cause); err != nil {
				glog.Errorf("[s]%s selection layout failed: %v", s.ClientID(), err)
				return
			}
			padding, maxZoom := 20.0, 1.0
			s.Dispatch(&action.FitToScreenAction{
				ElementIDs: result.SelectedElementsIDs,
				Padding:    &padding,
				MaxZoom:    &maxZoom,
			})
		})
		return nil
	}
}

// Factory creates configured diagram servers for new clients
type Factory struct {
	Settings server.Settings
	// Engine is the server layout engine, may be nil
	Engine server.LayoutEngine
	// Source produces the initial model of each server
	Source func() (*domain.Element, error)
	// Store restores saved positions into new models, may be nil
	Store   repository.PositionStore
	Diagram string
	// Listener is notified of every publication of every server, may be nil
	Listener server.ModelUpdateListener
}

// NewServer creates the server of one client
func (f *Factory) NewServer(clientID string) (*server.DiagramServer, error) {
	s := server.New(clientID, f.Settings)
	if f.Engine != nil {
		s.SetLayoutEngine(f.Engine)
	}
	s.SetPopupModelFactory(PopupFactory{})
	s.SetModelUpdateListener(f.Listener)
	Install(s)

	root, err := f.Source()
	if err != nil {
		return nil, fmt.Errorf("failed to load model for %s: %w", clientID, err)
	}
	if f.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		n, err := repository.Restore(ctx, f.Store, f.Diagram, root)
		cancel()
		if err != nil {
			glog.Warningf("[s]%s restoring positions of %s: %v", clientID, f.Diagram, err)
		} else if n > 0 {
			glog.V(1).Infof("[s]%s restored %d positions of %s", clientID, n, f.Diagram)
		}
	}
	if err := s.SetModel(root); err != nil {
		return nil, fmt.Errorf("failed to set model for %s: %w", clientID, err)
	}
	glog.V(1).Infof("[s]%s created with %d elements", clientID, len(domain.AllIDs(root)))
	return s, nil
}
