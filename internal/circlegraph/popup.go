package circlegraph

import (
	"fmt"
	"html"
	"strings"

	"diagramd/internal/action"
	"diagramd/internal/domain"
	"diagramd/internal/server"
)

// PopupFactory describes nodes and edges in hover popups
type PopupFactory struct{}

// CreatePopupModel implements server.PopupModelFactory
func (PopupFactory) CreatePopupModel(e *domain.Element, req *action.RequestPopupModelAction, state *server.State) (*domain.Element, error) {
	var body string
	switch {
	case e.IsNode():
		body = nodePopup(e, state.CurrentModel())
	case e.IsEdge():
		body = fmt.Sprintf(`<div class="sprotty-popup-title">Edge %s</div><div class="sprotty-popup-body">%s &rarr; %s</div>`,
			html.EscapeString(e.ID), html.EscapeString(e.SourceID), html.EscapeString(e.TargetID))
	default:
		return nil, nil
	}

	bounds := req.Bounds
	root := domain.NewRoot(domain.TypeHTML, e.ID+"_popup")
	root.CanvasBounds = &bounds
	root.Add(&domain.Element{
		Type:    "pre-rendered",
		ID:      e.ID + "_popup_body",
		Content: body,
	})
	return root, nil
}

func nodePopup(n *domain.Element, model *domain.Element) string {
	var in, out int
	for _, c := range model.Children {
		if c == nil || !c.IsEdge() {
			continue
		}
		if c.SourceID == n.ID {
			out++
		}
		if c.TargetID == n.ID {
			in++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="sprotty-popup-title">Node %s</div>`, html.EscapeString(n.ID))
	b.WriteString(`<div class="sprotty-popup-body">`)
	if n.Position != nil {
		fmt.Fprintf(&b, "<p>Position: %.0f, %.0f</p>", n.Position.X, n.Position.Y)
	}
	fmt.Fprintf(&b, "<p>Edges: %d in, %d out</p>", in, out)
	b.WriteString("</div>")
	return b.String()
}
