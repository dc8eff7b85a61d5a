package server

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"diagramd/internal/action"
	"diagramd/internal/domain"
)

// Option keys read from the client's model requests
const (
	OptionNeedsClientLayout = "needsClientLayout"
	OptionNeedsServerLayout = "needsServerLayout"
)

// Settings are the layout defaults used when the client sends no options
type Settings struct {
	NeedsClientLayout bool
	NeedsServerLayout bool
}

// DefaultSettings requests client layout and no server layout
func DefaultSettings() Settings {
	return Settings{NeedsClientLayout: true}
}

// HandlerFunc handles one inbound action
type HandlerFunc func(a action.Action) error

// DiagramServer is the protocol engine of one client
type DiagramServer struct {
	clientID string
	settings Settings

	// submitMu serializes in-place model mutation (layout, bounds) with
	// publication. Lock order: submitMu, then mu. Element ids and children
	// are never mutated in place, so handlers read the id set of the live
	// model under mu alone.
	submitMu sync.Mutex

	mu                sync.Mutex
	model             *domain.Element
	revision          int
	options           *action.Options
	expanded          map[string]struct{}
	selected          map[string]struct{}
	lastSubmittedType string
	boundsCause       *pendingBounds
	status            *action.ServerStatusAction

	endpointMu sync.RWMutex
	endpoint   RemoteEndpoint

	layoutEngine      LayoutEngine
	popupFactory      PopupModelFactory
	selectionListener SelectionListener
	expansionListener ExpansionListener
	openListener      OpenListener
	modelListener     ModelUpdateListener
	cloner            ModelCloner

	requests *Correlator

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	closed atomic.Bool
}

// pendingBounds remembers what caused an uncorrelated bounds request
type pendingBounds struct {
	revision int
	cause    action.Action
}

// New creates a server for the given client holding an empty placeholder model
func New(clientID string, settings Settings) *DiagramServer {
	s := &DiagramServer{
		clientID:          clientID,
		settings:          settings,
		model:             domain.EmptyRoot(),
		options:           &action.Options{},
		expanded:          make(map[string]struct{}),
		selected:          make(map[string]struct{}),
		selectionListener: nopListener{},
		expansionListener: nopListener{},
		openListener:      nopListener{},
		modelListener:     nopListener{},
		cloner:            domain.DeepCloner{},
		requests:          NewCorrelator("server"),
		handlers:          make(map[string]HandlerFunc),
	}
	s.registerDefaultHandlers()
	return s
}

// ClientID returns the id of the attached client
func (s *DiagramServer) ClientID() string {
	return s.clientID
}

// SetRemoteEndpoint sets where outbound messages go. It may be called again
// when the client reconnects.
func (s *DiagramServer) SetRemoteEndpoint(endpoint RemoteEndpoint) {
	s.endpointMu.Lock()
	defer s.endpointMu.Unlock()
	s.endpoint = endpoint
}

// SetLayoutEngine sets the server layout engine; nil disables server layout
func (s *DiagramServer) SetLayoutEngine(engine LayoutEngine) {
	s.layoutEngine = engine
}

// SetPopupModelFactory sets the popup model factory
func (s *DiagramServer) SetPopupModelFactory(factory PopupModelFactory) {
	s.popupFactory = factory
}

// SetSelectionListener sets the selection listener; nil restores the no-op
func (s *DiagramServer) SetSelectionListener(l SelectionListener) {
	if l == nil {
		l = nopListener{}
	}
	s.selectionListener = l
}

// SetExpansionListener sets the expansion listener; nil restores the no-op
func (s *DiagramServer) SetExpansionListener(l ExpansionListener) {
	if l == nil {
		l = nopListener{}
	}
	s.expansionListener = l
}

// SetOpenListener sets the open listener; nil restores the no-op
func (s *DiagramServer) SetOpenListener(l OpenListener) {
	if l == nil {
		l = nopListener{}
	}
	s.openListener = l
}

// SetModelUpdateListener sets the model update listener; nil restores the no-op
func (s *DiagramServer) SetModelUpdateListener(l ModelUpdateListener) {
	if l == nil {
		l = nopListener{}
	}
	s.modelListener = l
}

// SetModelCloner sets the cloner used before explicit layouts
func (s *DiagramServer) SetModelCloner(c ModelCloner) {
	if c == nil {
		c = domain.DeepCloner{}
	}
	s.cloner = c
}

// Handle registers a handler for an action kind, replacing any existing one
func (s *DiagramServer) Handle(kind string, h HandlerFunc) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[kind] = h
}

func (s *DiagramServer) handler(kind string) HandlerFunc {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	return s.handlers[kind]
}

// Dispatch sends an action to the client. It is a no-op without an endpoint
// or after Close.
func (s *DiagramServer) Dispatch(a action.Action) {
	if s.closed.Load() {
		return
	}
	s.endpointMu.RLock()
	endpoint := s.endpoint
	s.endpointMu.RUnlock()
	if endpoint == nil {
		glog.V(2).Infof("[s]%s no endpoint, dropping %s", s.clientID, a.Kind())
		return
	}
	endpoint(action.Message{ClientID: s.clientID, Action: a})
}

// Request sends a request to the client and returns the future its response
// settles. Requests without an id are assigned one.
func (s *DiagramServer) Request(req action.RequestAction) *Future {
	f := s.requests.Register(req)
	if s.closed.Load() {
		s.requests.Cancel(req.GetRequestID(), ErrServerClosed)
		return f
	}
	s.Dispatch(req)
	return f
}

// PendingRequests returns the number of unanswered requests
func (s *DiagramServer) PendingRequests() int {
	return s.requests.Pending()
}

// Model returns the current model
func (s *DiagramServer) Model() *domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Revision returns the current revision
func (s *DiagramServer) Revision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// State returns a snapshot of the diagram state
func (s *DiagramServer) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *DiagramServer) snapshotLocked() *State {
	return &State{
		clientID: s.clientID,
		options:  s.options.Clone(),
		model:    s.model,
		revision: s.revision,
		expanded: cloneSet(s.expanded),
		selected: cloneSet(s.selected),
	}
}

func cloneSet(set map[string]struct{}) map[string]struct{} {
	c := make(map[string]struct{}, len(set))
	for id := range set {
		c[id] = struct{}{}
	}
	return c
}

// SetModel replaces the model and publishes it as a new model
func (s *DiagramServer) SetModel(root *domain.Element) error {
	if root == nil {
		return ErrNilModel
	}
	s.replaceModel(root, false)
	return s.submitModel(root, false, nil)
}

// UpdateModel replaces the model and publishes it as an update of the
// previous one. With server layout enabled, elements keeping their id inherit
// missing geometry from the previous model.
func (s *DiagramServer) UpdateModel(root *domain.Element) error {
	if root == nil {
		return ErrNilModel
	}
	_, serverLayout := s.layoutRequirements()
	s.replaceModel(root, serverLayout)
	return s.submitModel(root, true, nil)
}

func (s *DiagramServer) replaceModel(root *domain.Element, copyLayout bool) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if copyLayout {
		domain.CopyLayoutData(s.model, root)
	}
	s.installLocked(root)
}

// swapModel installs root only if the live revision is still base. A model
// replaced meanwhile wins over a copy derived from its predecessor.
func (s *DiagramServer) swapModel(root *domain.Element, base int) bool {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != base {
		return false
	}
	s.installLocked(root)
	return true
}

func (s *DiagramServer) installLocked(root *domain.Element) {
	s.revision++
	root.Revision = s.revision
	s.model = root
}

// SetStatus records the server status and sends it to the client
func (s *DiagramServer) SetStatus(severity, message string) {
	status := &action.ServerStatusAction{Severity: severity, Message: message}
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.Dispatch(status)
}

// Status returns the last status set, or nil
func (s *DiagramServer) Status() *action.ServerStatusAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Close fails pending requests and stops outbound dispatch
func (s *DiagramServer) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.requests.Close(ErrServerClosed)
	glog.V(1).Infof("[s]%s closed", s.clientID)
}

// Closed reports whether Close was called
func (s *DiagramServer) Closed() bool {
	return s.closed.Load()
}

// Accept handles one inbound message. Responses to pending requests settle
// their futures; everything else is dispatched by kind. Handler failures of
// requests are answered with a rejection.
func (s *DiagramServer) Accept(msg action.Message) {
	if msg.ClientID != "" && msg.ClientID != s.clientID {
		glog.V(2).Infof("[s]%s ignoring message for client %s", s.clientID, msg.ClientID)
		return
	}
	a := msg.Action
	if a == nil {
		return
	}
	if resp, ok := a.(action.ResponseAction); ok && resp.GetResponseID() != "" {
		if s.requests.Resolve(resp) {
			return
		}
		glog.Infof("[s]%s no matching request for response %s %s", s.clientID, a.Kind(), resp.GetResponseID())
	}

	if err := s.handleAction(a); err != nil {
		if id := action.RequestIDOf(a); id != "" {
			glog.Errorf("[s]%s %s %s failed: %v", s.clientID, a.Kind(), id, err)
			s.Dispatch(action.NewReject(id, err.Error(), a.Kind()))
			return
		}
		glog.Errorf("[s]%s %s failed: %v", s.clientID, a.Kind(), err)
	}
}

func (s *DiagramServer) handleAction(a action.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("[s]%s panic handling %s: %v\n%s", s.clientID, a.Kind(), r, debug.Stack())
			err = fmt.Errorf("internal error handling %s: %v", a.Kind(), r)
		}
	}()

	h := s.handler(a.Kind())
	if h == nil {
		glog.V(2).Infof("[s]%s no handler for %s", s.clientID, a.Kind())
		return nil
	}
	glog.V(2).Infof("[s]%s handling %s", s.clientID, a.Kind())
	return h(a)
}
