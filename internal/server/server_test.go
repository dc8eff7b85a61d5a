package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagramd/internal/action"
	"diagramd/internal/domain"
)

type recorder struct {
	mu   sync.Mutex
	msgs []action.Message
}

func (r *recorder) endpoint(msg action.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) actions() []action.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]action.Action, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Action
	}
	return out
}

func (r *recorder) kinds() []string {
	var kinds []string
	for _, a := range r.actions() {
		kinds = append(kinds, a.Kind())
	}
	return kinds
}

func (r *recorder) last() action.Action {
	all := r.actions()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type stubEngine struct {
	place  bool
	err    error
	calls  int
	causes []action.Action
}

func (e *stubEngine) Layout(root *domain.Element, cause action.Action) error {
	e.calls++
	e.causes = append(e.causes, cause)
	if e.err != nil {
		return e.err
	}
	if e.place {
		domain.Walk(root, func(el *domain.Element) bool {
			if el.IsNode() {
				el.Position = domain.NewPoint(1, 2)
			}
			return true
		})
	}
	return nil
}

type popupFunc func(*domain.Element, *action.RequestPopupModelAction, *State) (*domain.Element, error)

func (f popupFunc) CreatePopupModel(e *domain.Element, r *action.RequestPopupModelAction, s *State) (*domain.Element, error) {
	return f(e, r, s)
}

type pingAction struct {
	action.Request
}

func (*pingAction) Kind() string { return "ping" }

func newTestServer(settings Settings) (*DiagramServer, *recorder) {
	rec := &recorder{}
	s := New("c1", settings)
	s.SetRemoteEndpoint(rec.endpoint)
	return s, rec
}

func testGraph(nodeIDs ...string) *domain.Element {
	root := domain.NewRoot(domain.TypeGraph, "graph")
	for _, id := range nodeIDs {
		root.Add(domain.NewNode(id, 10, 10))
	}
	if len(nodeIDs) > 1 {
		root.Add(domain.NewEdge("e_"+nodeIDs[0]+"_"+nodeIDs[1], nodeIDs[0], nodeIDs[1]))
	}
	return root
}

func accept(s *DiagramServer, a action.Action) {
	s.Accept(action.Message{ClientID: s.ClientID(), Action: a})
}

func revision(n int) *int { return &n }

var noLayout = Settings{}

func TestNew(t *testing.T) {
	s := New("c1", DefaultSettings())
	assert.Equal(t, "c1", s.ClientID())
	assert.Equal(t, 0, s.Revision())
	assert.Equal(t, domain.TypeNone, s.Model().Type)
	assert.Equal(t, "ROOT", s.Model().ID)
	assert.True(t, DefaultSettings().NeedsClientLayout)
	assert.False(t, DefaultSettings().NeedsServerLayout)

	// no endpoint yet: dispatch is dropped
	s.Dispatch(&action.ServerStatusAction{})
}

func TestRevisionCounting(t *testing.T) {
	s, _ := newTestServer(noLayout)
	for i := 1; i <= 5; i++ {
		var err error
		if i%2 == 0 {
			err = s.UpdateModel(testGraph("a", "b"))
		} else {
			err = s.SetModel(testGraph("a"))
		}
		require.NoError(t, err)
		assert.Equal(t, i, s.Revision())
		assert.Equal(t, i, s.Model().Revision)
	}

	t.Run("nil model leaves state untouched", func(t *testing.T) {
		before := s.Model()
		assert.ErrorIs(t, s.SetModel(nil), ErrNilModel)
		assert.ErrorIs(t, s.UpdateModel(nil), ErrNilModel)
		assert.Equal(t, 5, s.Revision())
		assert.Same(t, before, s.Model())
	})
}

func TestPublishWithoutClientLayout(t *testing.T) {
	s, rec := newTestServer(noLayout)
	g := testGraph("a", "b")
	require.NoError(t, s.SetModel(g))

	set, ok := rec.last().(*action.SetModelAction)
	require.True(t, ok, "expected setModel, got %v", rec.kinds())
	assert.Same(t, g, set.NewRoot)
	assert.Empty(t, set.ResponseID)

	t.Run("update of same type", func(t *testing.T) {
		g2 := testGraph("a", "b", "c")
		require.NoError(t, s.UpdateModel(g2))
		upd, ok := rec.last().(*action.UpdateModelAction)
		require.True(t, ok)
		assert.Same(t, g2, upd.NewRoot)
	})

	t.Run("update of different type sets model", func(t *testing.T) {
		other := domain.NewRoot("graph:other", "other")
		require.NoError(t, s.UpdateModel(other))
		_, ok := rec.last().(*action.SetModelAction)
		assert.True(t, ok)
	})

	t.Run("request model is answered", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestModelAction{Request: action.Request{RequestID: "client_1"}})
		require.Equal(t, []string{action.KindSetModel}, rec.kinds())
		set := rec.last().(*action.SetModelAction)
		assert.Equal(t, "client_1", set.ResponseID)
		assert.Same(t, s.Model(), set.NewRoot)
	})
}

func TestClientOnlyLayout(t *testing.T) {
	s, rec := newTestServer(DefaultSettings())
	submitted := 0
	s.SetModelUpdateListener(ModelUpdateListenerFunc(func(*domain.Element, *State) { submitted++ }))

	g := testGraph("a", "b")
	require.NoError(t, s.SetModel(g))
	require.Equal(t, []string{action.KindRequestBounds}, rec.kinds())
	rb := rec.last().(*action.RequestBoundsAction)
	assert.Empty(t, rb.RequestID)
	assert.Same(t, g, rb.NewRoot)
	assert.Equal(t, 1, submitted)

	t.Run("stale bounds are discarded", func(t *testing.T) {
		for _, rev := range []*int{nil, revision(0), revision(7)} {
			accept(s, &action.ComputedBoundsAction{
				Bounds:   []domain.ElementAndBounds{{ElementID: "a", NewPosition: domain.NewPoint(9, 9)}},
				Revision: rev,
			})
		}
		assert.Nil(t, domain.Find(s.Model(), "a").Position)
		assert.Equal(t, []string{action.KindRequestBounds}, rec.kinds())
	})

	t.Run("matching bounds publish", func(t *testing.T) {
		accept(s, &action.ComputedBoundsAction{
			Bounds: []domain.ElementAndBounds{{
				ElementID:   "a",
				NewPosition: domain.NewPoint(3, 4),
				NewSize:     domain.NewDimension(20, 30),
			}},
			Alignments: []domain.ElementAndAlignment{{ElementID: "b", NewAlignment: domain.NewPoint(1, 1)}},
			Revision:   revision(1),
		})
		require.Equal(t, []string{action.KindRequestBounds, action.KindSetModel}, rec.kinds())
		a := domain.Find(s.Model(), "a")
		assert.Equal(t, &domain.Point{X: 3, Y: 4}, a.Position)
		assert.Equal(t, &domain.Dimension{Width: 20, Height: 30}, a.Size)
		assert.Equal(t, &domain.Point{X: 1, Y: 1}, domain.Find(s.Model(), "b").Alignment)
		assert.Equal(t, 2, submitted)
	})
}

func TestClientLayoutAnswersModelRequest(t *testing.T) {
	s, rec := newTestServer(DefaultSettings())
	require.NoError(t, s.SetModel(testGraph("a")))
	rec.reset()

	accept(s, &action.RequestModelAction{Request: action.Request{RequestID: "client_7"}})
	require.Equal(t, []string{action.KindRequestBounds}, rec.kinds())

	accept(s, &action.ComputedBoundsAction{Revision: revision(1)})
	set, ok := rec.last().(*action.SetModelAction)
	require.True(t, ok)
	assert.Equal(t, "client_7", set.ResponseID)
}

func TestOverlappingUpdatesPublishLatest(t *testing.T) {
	t.Run("client layout", func(t *testing.T) {
		s, rec := newTestServer(DefaultSettings())
		g1, g2 := testGraph("a"), testGraph("b")
		require.NoError(t, s.SetModel(g1))
		require.NoError(t, s.SetModel(g2))
		assert.Equal(t, []string{action.KindRequestBounds, action.KindRequestBounds}, rec.kinds())

		accept(s, &action.ComputedBoundsAction{Revision: revision(1)})
		assert.Len(t, rec.actions(), 2)

		accept(s, &action.ComputedBoundsAction{Revision: revision(2)})
		set, ok := rec.last().(*action.SetModelAction)
		require.True(t, ok)
		assert.Same(t, g2, set.NewRoot)
	})

	t.Run("client and server layout", func(t *testing.T) {
		s, rec := newTestServer(Settings{NeedsClientLayout: true, NeedsServerLayout: true})
		engine := &stubEngine{place: true}
		s.SetLayoutEngine(engine)

		g1, g2 := testGraph("a"), testGraph("b")
		require.NoError(t, s.SetModel(g1))
		require.NoError(t, s.SetModel(g2))
		ids := []string{}
		for _, a := range rec.actions() {
			ids = append(ids, a.(*action.RequestBoundsAction).RequestID)
		}
		assert.Equal(t, []string{"server_1", "server_2"}, ids)
		assert.Equal(t, 2, s.PendingRequests())

		accept(s, &action.ComputedBoundsAction{
			Response: action.Response{ResponseID: "server_1"},
			Bounds:   []domain.ElementAndBounds{{ElementID: "a", NewSize: domain.NewDimension(99, 99)}},
		})
		assert.Len(t, rec.actions(), 2)
		assert.Equal(t, &domain.Dimension{Width: 10, Height: 10}, domain.Find(g1, "a").Size)

		accept(s, &action.ComputedBoundsAction{
			Response: action.Response{ResponseID: "server_2"},
			Bounds:   []domain.ElementAndBounds{{ElementID: "b", NewSize: domain.NewDimension(40, 50)}},
		})
		set, ok := rec.last().(*action.SetModelAction)
		require.True(t, ok)
		assert.Same(t, g2, set.NewRoot)
		b := domain.Find(g2, "b")
		assert.Equal(t, &domain.Dimension{Width: 40, Height: 50}, b.Size)
		assert.Equal(t, &domain.Point{X: 1, Y: 2}, b.Position)
		assert.Zero(t, s.PendingRequests())
	})

	t.Run("concurrent updates", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					assert.NoError(t, s.UpdateModel(testGraph("a", "b")))
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 160, s.Revision())
		last := 0
		for _, a := range rec.actions() {
			var root *domain.Element
			switch m := a.(type) {
			case *action.SetModelAction:
				root = m.NewRoot
			case *action.UpdateModelAction:
				root = m.NewRoot
			}
			require.NotNil(t, root)
			assert.Greater(t, root.Revision, last)
			last = root.Revision
		}
		assert.Equal(t, 160, last)
	})
}

func TestCorrelatedBoundsRejected(t *testing.T) {
	s, rec := newTestServer(Settings{NeedsClientLayout: true, NeedsServerLayout: true})
	s.SetLayoutEngine(&stubEngine{})

	accept(s, &action.RequestModelAction{Request: action.Request{RequestID: "client_1"}})
	require.Equal(t, []string{action.KindRequestBounds}, rec.kinds())

	accept(s, action.NewReject("server_1", "cannot measure", ""))
	reject, ok := rec.last().(*action.RejectAction)
	require.True(t, ok, "got %v", rec.kinds())
	assert.Equal(t, "client_1", reject.ResponseID)
	assert.Contains(t, reject.Message, "cannot measure")
}

func TestServerLayout(t *testing.T) {
	t.Run("runs engine synchronously", func(t *testing.T) {
		s, rec := newTestServer(Settings{NeedsServerLayout: true})
		engine := &stubEngine{place: true}
		s.SetLayoutEngine(engine)

		require.NoError(t, s.SetModel(testGraph("a")))
		assert.Equal(t, 1, engine.calls)
		assert.Equal(t, []string{action.KindSetModel}, rec.kinds())
		assert.Equal(t, &domain.Point{X: 1, Y: 2}, domain.Find(s.Model(), "a").Position)
	})

	t.Run("engine failure is returned", func(t *testing.T) {
		s, rec := newTestServer(Settings{NeedsServerLayout: true})
		s.SetLayoutEngine(&stubEngine{err: errors.New("boom")})
		err := s.SetModel(testGraph("a"))
		assert.ErrorContains(t, err, "boom")
		assert.Empty(t, rec.actions())
	})

	t.Run("missing engine downgrades", func(t *testing.T) {
		s, rec := newTestServer(Settings{NeedsServerLayout: true})
		require.NoError(t, s.SetModel(testGraph("a")))
		assert.Equal(t, []string{action.KindSetModel}, rec.kinds())
	})

	t.Run("update copies previous layout", func(t *testing.T) {
		s, _ := newTestServer(Settings{NeedsServerLayout: true})
		s.SetLayoutEngine(&stubEngine{})
		g1 := testGraph("a", "b")
		domain.Find(g1, "a").Position = domain.NewPoint(5, 6)
		require.NoError(t, s.SetModel(g1))

		g2 := testGraph("a", "c")
		require.NoError(t, s.UpdateModel(g2))
		assert.Equal(t, &domain.Point{X: 5, Y: 6}, domain.Find(g2, "a").Position)
		assert.Nil(t, domain.Find(g2, "c").Position)
	})
}

func TestLayoutOptions(t *testing.T) {
	t.Run("client options override settings", func(t *testing.T) {
		s, rec := newTestServer(DefaultSettings())
		accept(s, &action.RequestModelAction{Options: action.NewOptions(OptionNeedsClientLayout, "false")})
		assert.Equal(t, []string{action.KindSetModel}, rec.kinds())
		v, ok := s.State().Options().Get(OptionNeedsClientLayout)
		assert.True(t, ok)
		assert.Equal(t, "false", v)
	})

	t.Run("invalid value falls back to settings", func(t *testing.T) {
		s, rec := newTestServer(DefaultSettings())
		accept(s, &action.RequestModelAction{Options: action.NewOptions(OptionNeedsClientLayout, "maybe")})
		assert.Equal(t, []string{action.KindRequestBounds}, rec.kinds())
	})

	t.Run("options merge", func(t *testing.T) {
		s, _ := newTestServer(noLayout)
		accept(s, &action.RequestModelAction{Options: action.NewOptions("a", "1")})
		accept(s, &action.RequestModelAction{Options: action.NewOptions("b", "2", "a", "3")})
		opts := s.State().Options()
		assert.Equal(t, []string{"a", "b"}, opts.Keys())
		v, _ := opts.Get("a")
		assert.Equal(t, "3", v)
	})
}

func TestSelection(t *testing.T) {
	s, _ := newTestServer(noLayout)
	require.NoError(t, s.SetModel(testGraph("a", "b")))
	var notified []*State
	s.SetSelectionListener(SelectionListenerFunc(func(_ action.Action, st *State) {
		notified = append(notified, st)
	}))

	accept(s, &action.SelectAction{SelectedElementsIDs: []string{"a"}})
	require.Len(t, notified, 1)
	assert.Equal(t, []string{"a"}, notified[0].SelectedElements())

	accept(s, &action.SelectAction{SelectedElementsIDs: []string{"a", "unknown"}})
	assert.Len(t, notified, 1)

	accept(s, &action.SelectAction{DeselectedElementsIDs: []string{"b"}})
	assert.Len(t, notified, 1)

	accept(s, &action.SelectAction{SelectedElementsIDs: []string{"b"}, DeselectedElementsIDs: []string{"a"}})
	require.Len(t, notified, 2)
	assert.Equal(t, []string{"b"}, notified[1].SelectedElements())
	assert.True(t, notified[1].IsSelected("b"))
	assert.False(t, notified[1].IsSelected("a"))

	t.Run("select all", func(t *testing.T) {
		accept(s, &action.SelectAllAction{Select: true})
		require.Len(t, notified, 3)
		assert.Equal(t, []string{"a", "b", "e_a_b", "graph"}, notified[2].SelectedElements())

		accept(s, &action.SelectAllAction{Select: true})
		assert.Len(t, notified, 3)
	})

	t.Run("snapshots are independent", func(t *testing.T) {
		assert.Equal(t, []string{"a"}, notified[0].SelectedElements())
	})

	t.Run("publication prunes selection", func(t *testing.T) {
		require.NoError(t, s.SetModel(testGraph("b")))
		assert.Equal(t, []string{"b", "graph"}, s.State().SelectedElements())
	})

	t.Run("deselect all", func(t *testing.T) {
		accept(s, &action.SelectAllAction{Select: false})
		require.Len(t, notified, 4)
		assert.Empty(t, s.State().SelectedElements())
		accept(s, &action.SelectAllAction{Select: false})
		assert.Len(t, notified, 4)
	})
}

func TestExpansion(t *testing.T) {
	s, _ := newTestServer(noLayout)
	require.NoError(t, s.SetModel(testGraph("a", "b")))
	calls := 0
	s.SetExpansionListener(ExpansionListenerFunc(func(action.Action, *State) { calls++ }))

	accept(s, &action.CollapseExpandAction{ExpandIDs: []string{"a", "zz"}})
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, s.State().ExpandedElements())

	accept(s, &action.CollapseExpandAction{})
	assert.Equal(t, 2, calls)

	accept(s, &action.CollapseExpandAction{CollapseIDs: []string{"a"}})
	assert.Equal(t, 3, calls)
	assert.Empty(t, s.State().ExpandedElements())

	accept(s, &action.CollapseExpandAllAction{Expand: true})
	assert.Equal(t, 4, calls)
	assert.Len(t, s.State().ExpandedElements(), 4)

	require.NoError(t, s.SetModel(testGraph("a")))
	assert.Equal(t, []string{"a", "graph"}, s.State().ExpandedElements())

	accept(s, &action.CollapseExpandAllAction{Expand: false})
	assert.Equal(t, 5, calls)
	assert.False(t, s.State().IsExpanded("a"))
}

func TestClientLayoutPrunesState(t *testing.T) {
	s, _ := newTestServer(DefaultSettings())
	require.NoError(t, s.SetModel(testGraph("n0", "n1")))
	accept(s, &action.ComputedBoundsAction{Revision: revision(1)})
	accept(s, &action.CollapseExpandAction{ExpandIDs: []string{"n0"}})
	accept(s, &action.SelectAction{SelectedElementsIDs: []string{"n0"}})
	require.Equal(t, []string{"n0"}, s.State().ExpandedElements())
	require.Equal(t, []string{"n0"}, s.State().SelectedElements())

	require.NoError(t, s.UpdateModel(testGraph("n2", "n3")))
	assert.Empty(t, s.State().ExpandedElements())
	assert.Empty(t, s.State().SelectedElements())
}

func TestPopupModel(t *testing.T) {
	s, rec := newTestServer(noLayout)
	require.NoError(t, s.SetModel(testGraph("a", "b")))

	t.Run("no factory", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestPopupModelAction{Request: action.Request{RequestID: "p1"}, ElementID: "a"})
		reject, ok := rec.last().(*action.RejectAction)
		require.True(t, ok)
		assert.Equal(t, "p1", reject.ResponseID)
	})

	s.SetPopupModelFactory(popupFunc(func(e *domain.Element, req *action.RequestPopupModelAction, st *State) (*domain.Element, error) {
		switch e.ID {
		case "a":
			popup := domain.NewRoot(domain.TypeHTML, "popup")
			popup.Add(&domain.Element{Type: "pre-rendered", ID: "popup-body", Content: "<div>" + e.ID + "</div>"})
			return popup, nil
		case "b":
			return nil, errors.New("broken")
		}
		return nil, nil
	}))

	t.Run("known element", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestPopupModelAction{Request: action.Request{RequestID: "p2"}, ElementID: "a"})
		set, ok := rec.last().(*action.SetPopupModelAction)
		require.True(t, ok)
		assert.Equal(t, "p2", set.ResponseID)
		assert.Equal(t, "popup", set.NewRoot.ID)
	})

	t.Run("unknown element", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestPopupModelAction{Request: action.Request{RequestID: "p3"}, ElementID: "nope"})
		reject, ok := rec.last().(*action.RejectAction)
		require.True(t, ok)
		assert.Equal(t, "p3", reject.ResponseID)
		assert.Equal(t, "nope", reject.Detail)
	})

	t.Run("factory error", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestPopupModelAction{Request: action.Request{RequestID: "p4"}, ElementID: "b"})
		reject, ok := rec.last().(*action.RejectAction)
		require.True(t, ok)
		assert.Equal(t, "p4", reject.ResponseID)
		assert.Contains(t, reject.Message, "broken")
	})

	t.Run("no popup", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestPopupModelAction{Request: action.Request{RequestID: "p5"}, ElementID: "graph"})
		_, ok := rec.last().(*action.RejectAction)
		assert.True(t, ok)
	})

	t.Run("missing request id", func(t *testing.T) {
		rec.reset()
		accept(s, &action.RequestPopupModelAction{ElementID: "nope"})
		assert.Empty(t, rec.actions())
	})
}

func TestOpen(t *testing.T) {
	s, _ := newTestServer(noLayout)
	var opened []string
	s.SetOpenListener(OpenListenerFunc(func(a *action.OpenAction, st *State) {
		opened = append(opened, a.ElementID)
		assert.Equal(t, "c1", st.ClientID())
	}))
	accept(s, &action.OpenAction{ElementID: "a"})
	assert.Equal(t, []string{"a"}, opened)

	s.SetOpenListener(nil)
	accept(s, &action.OpenAction{ElementID: "b"})
	assert.Equal(t, []string{"a"}, opened)
}

func TestLayoutAction(t *testing.T) {
	t.Run("server layout", func(t *testing.T) {
		s, rec := newTestServer(Settings{NeedsServerLayout: true})
		engine := &stubEngine{place: true}
		s.SetLayoutEngine(engine)
		g := testGraph("a")
		require.NoError(t, s.SetModel(g))
		rec.reset()

		layout := &action.LayoutAction{}
		accept(s, layout)
		assert.Equal(t, 2, s.Revision())
		assert.NotSame(t, g, s.Model())
		assert.Equal(t, 1, g.Revision)
		assert.Same(t, layout, engine.causes[len(engine.causes)-1])
		upd, ok := rec.last().(*action.UpdateModelAction)
		require.True(t, ok)
		assert.Same(t, s.Model(), upd.NewRoot)
	})

	t.Run("without server layout", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		require.NoError(t, s.SetModel(testGraph("a")))
		rec.reset()
		accept(s, &action.LayoutAction{})
		assert.Equal(t, 1, s.Revision())
		assert.Empty(t, rec.actions())
	})
}

func TestLayoutModel(t *testing.T) {
	s, rec := newTestServer(noLayout)
	assert.ErrorIs(t, s.LayoutModel(nil), ErrNoLayoutEngine)

	engine := &stubEngine{place: true}
	s.SetLayoutEngine(engine)
	require.NoError(t, s.SetModel(testGraph("a", "b")))

	cause := &action.LayoutAction{ElementIDs: []string{"a"}}
	require.NoError(t, s.LayoutModel(cause))
	assert.Equal(t, 2, s.Revision())
	assert.Equal(t, []action.Action{cause}, engine.causes)
	_, ok := rec.last().(*action.UpdateModelAction)
	assert.True(t, ok)
	assert.Equal(t, &domain.Point{X: 1, Y: 2}, domain.Find(s.Model(), "b").Position)

	engine.err = errors.New("no room")
	assert.ErrorContains(t, s.LayoutModel(cause), "no room")
	assert.Equal(t, 2, s.Revision())
}

// replacingEngine installs another model on the server during its first
// layout run.
type replacingEngine struct {
	s    *DiagramServer
	next *domain.Element
	err  error
}

func (e *replacingEngine) Layout(*domain.Element, action.Action) error {
	if next := e.next; next != nil {
		e.next = nil
		e.err = e.s.UpdateModel(next)
	}
	return nil
}

func TestLayoutLosesToConcurrentReplacement(t *testing.T) {
	s, rec := newTestServer(noLayout)
	require.NoError(t, s.SetModel(testGraph("a0", "a1")))
	engine := &replacingEngine{s: s, next: testGraph("b0", "b1")}
	s.SetLayoutEngine(engine)
	rec.reset()

	require.NoError(t, s.LayoutModel(&action.LayoutAction{}))
	require.NoError(t, engine.err)

	model := s.Model()
	assert.NotNil(t, domain.Find(model, "b0"))
	assert.NotNil(t, domain.Find(model, "b1"))
	assert.Nil(t, domain.Find(model, "a0"))
	assert.Equal(t, 2, s.State().Revision())
	assert.Equal(t, []string{action.KindUpdateModel}, rec.kinds())

	update, ok := rec.last().(*action.UpdateModelAction)
	require.True(t, ok)
	assert.NotNil(t, domain.Find(update.NewRoot, "b0"))
}

func TestAccept(t *testing.T) {
	t.Run("ignores other clients", func(t *testing.T) {
		s, _ := newTestServer(noLayout)
		require.NoError(t, s.SetModel(testGraph("a")))
		s.Accept(action.Message{ClientID: "c2", Action: &action.SelectAllAction{Select: true}})
		assert.Empty(t, s.State().SelectedElements())
		s.Accept(action.Message{Action: &action.SelectAllAction{Select: true}})
		assert.NotEmpty(t, s.State().SelectedElements())
	})

	t.Run("unknown kinds are ignored", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		accept(s, &action.UnknownAction{KindName: "mystery"})
		s.Accept(action.Message{ClientID: "c1"})
		assert.Empty(t, rec.actions())
	})

	t.Run("custom handler", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		s.Handle("ping", func(a action.Action) error {
			s.SetStatus(action.SeverityOK, "pong")
			return nil
		})
		accept(s, &pingAction{})
		status, ok := rec.last().(*action.ServerStatusAction)
		require.True(t, ok)
		assert.Equal(t, "pong", status.Message)
		assert.Same(t, status, s.Status())
	})

	t.Run("handler error rejects request", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		s.Handle("ping", func(action.Action) error { return errors.New("bad ping") })
		accept(s, &pingAction{Request: action.Request{RequestID: "q1"}})
		reject, ok := rec.last().(*action.RejectAction)
		require.True(t, ok)
		assert.Equal(t, "q1", reject.ResponseID)
		assert.Equal(t, "bad ping", reject.Message)

		rec.reset()
		accept(s, &pingAction{})
		assert.Empty(t, rec.actions())
	})

	t.Run("panics are recovered", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		s.Handle("ping", func(action.Action) error { panic("kaboom") })
		accept(s, &pingAction{Request: action.Request{RequestID: "q2"}})
		reject, ok := rec.last().(*action.RejectAction)
		require.True(t, ok)
		assert.Equal(t, "q2", reject.ResponseID)
		assert.Contains(t, reject.Message, "kaboom")
	})

	t.Run("responses resolve requests", func(t *testing.T) {
		s, rec := newTestServer(noLayout)
		f := s.Request(&action.GetSelectionAction{})
		req := rec.last().(*action.GetSelectionAction)
		assert.Equal(t, "server_1", req.RequestID)

		accept(s, &action.SelectionResult{
			Response:            action.Response{ResponseID: "server_1"},
			SelectedElementsIDs: []string{"x"},
		})
		resp, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, resp.(*action.SelectionResult).SelectedElementsIDs)
	})

	t.Run("unmatched responses fall through", func(t *testing.T) {
		s, rec := newTestServer(DefaultSettings())
		require.NoError(t, s.SetModel(testGraph("a")))
		accept(s, &action.ComputedBoundsAction{
			Response: action.Response{ResponseID: "gone"},
			Revision: revision(1),
		})
		assert.Equal(t, []string{action.KindRequestBounds, action.KindSetModel}, rec.kinds())
	})
}

func TestClose(t *testing.T) {
	s, rec := newTestServer(noLayout)
	f := s.Request(&action.GetSelectionAction{})
	rec.reset()

	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrServerClosed)

	s.Dispatch(&action.ServerStatusAction{})
	assert.Empty(t, rec.actions())

	_, err = s.Request(&action.GetSelectionAction{}).Wait(context.Background())
	assert.ErrorIs(t, err, ErrServerClosed)
	assert.Zero(t, s.PendingRequests())
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestServer(noLayout)
	require.NoError(t, s.SetModel(testGraph("a")))
	snap := s.Snapshot()
	assert.NotSame(t, s.Model(), snap)
	snap.Children[0].ID = "changed"
	assert.NotNil(t, domain.Find(s.Model(), "a"))
}
