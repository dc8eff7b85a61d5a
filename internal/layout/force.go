// Package layout computes server-side node positions for diagram models.
package layout

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r2"

	"diagramd/internal/action"
	"diagramd/internal/domain"
)

// Options tune the force-directed layout
type Options struct {
	Iterations int
	Seed       uint64
	Repulsion  float64
	Rate       float64
	Theta      float64
	// Padding is the distance of the top-left node from the origin
	Padding float64
	// Spread multiplies the node extent to get the length of one layout unit
	Spread float64
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Iterations: 1000,
		Repulsion:  1,
		Rate:       0.05,
		Theta:      0.2,
		Padding:    20,
		Spread:     1.5,
	}
}

const defaultNodeExtent = 60

// Selection is implemented by actions that restrict a layout to some elements
type Selection interface {
	LayoutSelection() []string
}

// Force is an Eades force-directed layout engine. Nodes are the node
// children of the root, springs are the edge children connecting them.
type Force struct {
	opts Options
}

// NewForce creates a force layout engine. Zero-valued options fall back to
// the defaults.
func NewForce(opts Options) *Force {
	def := DefaultOptions()
	if opts.Iterations <= 0 {
		opts.Iterations = def.Iterations
	}
	if opts.Repulsion <= 0 {
		opts.Repulsion = def.Repulsion
	}
	if opts.Rate <= 0 {
		opts.Rate = def.Rate
	}
	if opts.Theta <= 0 {
		opts.Theta = def.Theta
	}
	if opts.Spread <= 0 {
		opts.Spread = def.Spread
	}
	return &Force{opts: opts}
}

// Options returns the effective options
func (f *Force) Options() Options {
	return f.opts
}

// Layout positions the root's nodes in place. If cause carries a non-empty
// selection only the selected nodes move; they keep the top-left corner of
// the area they occupied before. Unless cause is an explicit layout request,
// a model whose nodes all have positions is left as it is.
func (f *Force) Layout(root *domain.Element, cause action.Action) error {
	if root == nil {
		return fmt.Errorf("layout: nil model")
	}

	selected := selectionOf(cause)
	var nodes []*domain.Element
	index := make(map[string]int64)
	for _, child := range root.Children {
		if child == nil || !child.IsNode() {
			continue
		}
		if len(selected) > 0 {
			if _, ok := selected[child.ID]; !ok {
				continue
			}
		}
		if _, dup := index[child.ID]; dup {
			continue
		}
		index[child.ID] = int64(len(nodes))
		nodes = append(nodes, child)
	}
	if len(nodes) == 0 {
		return nil
	}
	if _, explicit := cause.(Selection); !explicit && allPlaced(nodes) {
		glog.V(2).Infof("[layout] %s: all %d nodes placed, keeping positions", root.ID, len(nodes))
		return nil
	}

	g := simple.NewUndirectedGraph()
	for i := range nodes {
		g.AddNode(simple.Node(i))
	}
	var edges []*domain.Element
	for _, child := range root.Children {
		if child == nil || !child.IsEdge() {
			continue
		}
		src, okSrc := index[child.SourceID]
		tgt, okTgt := index[child.TargetID]
		if okSrc || okTgt {
			edges = append(edges, child)
		}
		// simple graphs reject self loops
		if okSrc && okTgt && src != tgt {
			g.SetEdge(g.NewEdge(simple.Node(src), simple.Node(tgt)))
		}
	}

	coords := make([]r2.Vec, len(nodes))
	if len(nodes) > 1 {
		eades := layout.EadesR2{
			Updates:   f.opts.Iterations,
			Repulsion: f.opts.Repulsion,
			Rate:      f.opts.Rate,
			Theta:     f.opts.Theta,
			Src:       rand.NewPCG(f.opts.Seed, f.opts.Seed),
		}
		opt := layout.NewOptimizerR2(g, eades.Update)
		for opt.Update() {
		}
		for i := range nodes {
			coords[i] = opt.Coord2(int64(i))
		}
	}

	origin := r2.Vec{X: f.opts.Padding, Y: f.opts.Padding}
	if len(selected) > 0 {
		origin = topLeft(nodes, origin)
	}
	unit := nodeExtent(nodes) * f.opts.Spread
	placed := place(coords, origin, unit)
	for i, n := range nodes {
		n.Position = &domain.Point{X: placed[i].X, Y: placed[i].Y}
		if n.Size == nil {
			n.Size = domain.NewDimension(defaultNodeExtent, defaultNodeExtent)
		}
	}
	for _, e := range edges {
		e.RoutingPoints = nil
	}

	glog.V(2).Infof("[layout] %s: placed %d nodes, %d edges", root.ID, len(nodes), len(edges))
	return nil
}

func selectionOf(cause action.Action) map[string]struct{} {
	sel, ok := cause.(Selection)
	if !ok {
		return nil
	}
	ids := sel.LayoutSelection()
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// place maps layout coordinates so that the smallest coordinate lands on
// origin and one layout unit spans unit pixels
func place(coords []r2.Vec, origin r2.Vec, unit float64) []r2.Vec {
	lo := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	for _, c := range coords {
		lo.X = math.Min(lo.X, c.X)
		lo.Y = math.Min(lo.Y, c.Y)
	}
	out := make([]r2.Vec, len(coords))
	for i, c := range coords {
		p := r2.Add(origin, r2.Scale(unit, r2.Sub(c, lo)))
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			p = origin
		}
		out[i] = p
	}
	return out
}

func allPlaced(nodes []*domain.Element) bool {
	for _, n := range nodes {
		if n.Position == nil {
			return false
		}
	}
	return true
}

// topLeft returns the smallest position among nodes that have one
func topLeft(nodes []*domain.Element, fallback r2.Vec) r2.Vec {
	found := false
	tl := r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	for _, n := range nodes {
		if n.Position == nil {
			continue
		}
		found = true
		tl.X = math.Min(tl.X, n.Position.X)
		tl.Y = math.Min(tl.Y, n.Position.Y)
	}
	if !found {
		return fallback
	}
	return tl
}

func nodeExtent(nodes []*domain.Element) float64 {
	extent := 0.0
	for _, n := range nodes {
		if n.Size != nil {
			extent = math.Max(extent, math.Max(n.Size.Width, n.Size.Height))
		}
	}
	if extent == 0 {
		return defaultNodeExtent
	}
	return extent
}
