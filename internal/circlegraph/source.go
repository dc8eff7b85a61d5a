package circlegraph

import (
	"sync"

	"diagramd/internal/domain"
)

// SharedModel holds the model new servers start from. Every Get hands out
// an independent copy so servers never share a tree.
type SharedModel struct {
	mu   sync.RWMutex
	root *domain.Element
}

// NewSharedModel creates a shared model holding root
func NewSharedModel(root *domain.Element) *SharedModel {
	return &SharedModel{root: root}
}

// Get returns a copy of the current model; it fits Factory.Source
func (m *SharedModel) Get() (*domain.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Clone(m.root), nil
}

// Replace swaps the model for servers created from now on
func (m *SharedModel) Replace(root *domain.Element) {
	m.mu.Lock()
	m.root = root
	m.mu.Unlock()
}
