package repository

import (
	"context"

	"diagramd/internal/domain"
)

// PositionStore persists node geometry per diagram
type PositionStore interface {
	// SavePositions upserts the geometry of the given elements
	SavePositions(ctx context.Context, diagram string, positions map[string]domain.Bounds) error
	// Positions returns all stored geometry of a diagram keyed by element id
	Positions(ctx context.Context, diagram string) (map[string]domain.Bounds, error)
	// DeleteDiagram removes all geometry of a diagram
	DeleteDiagram(ctx context.Context, diagram string) error

	Close() error
}

// Restore fills the position and size of nodes that have none from the
// store. It returns the number of nodes that were restored.
func Restore(ctx context.Context, store PositionStore, diagram string, root *domain.Element) (int, error) {
	stored, err := store.Positions(ctx, diagram)
	if err != nil {
		return 0, err
	}
	restored := 0
	domain.Walk(root, func(e *domain.Element) bool {
		b, ok := stored[e.ID]
		if !ok || !e.IsNode() || e.Position != nil {
			return true
		}
		e.Position = domain.NewPoint(b.X, b.Y)
		if e.Size == nil && b.Width > 0 && b.Height > 0 {
			e.Size = domain.NewDimension(b.Width, b.Height)
		}
		restored++
		return true
	})
	return restored, nil
}

// NodeGeometry collects the bounds of all positioned nodes in the tree
func NodeGeometry(root *domain.Element) map[string]domain.Bounds {
	out := make(map[string]domain.Bounds)
	domain.Walk(root, func(e *domain.Element) bool {
		if e.IsNode() && e.Position != nil {
			out[e.ID] = e.Bounds()
		}
		return true
	})
	return out
}
