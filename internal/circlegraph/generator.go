// Package circlegraph is the example diagram served by diagramd: a random
// graph of circular nodes with hover popups and selection layout.
package circlegraph

import (
	"math/rand/v2"
	"strconv"
	"sync"

	"diagramd/internal/domain"
)

// TypeCircle is the element type of generated nodes
const TypeCircle = "node:circle"

// Generator builds random graphs. It is safe for concurrent use.
type Generator struct {
	Nodes      int
	ExtraEdges int
	NodeSize   float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator creates a generator drawing from the given seed
func NewGenerator(nodes, extraEdges int, nodeSize float64, seed uint64) *Generator {
	return &Generator{
		Nodes:      nodes,
		ExtraEdges: extraEdges,
		NodeSize:   nodeSize,
		rnd:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate returns a new graph. Every node has one outgoing edge to another
// node, then ExtraEdges more edges join random pairs.
func (g *Generator) Generate() *domain.Element {
	g.mu.Lock()
	defer g.mu.Unlock()

	root := domain.NewRoot(domain.TypeGraph, "graph")
	nodeIDs := make([]string, g.Nodes)
	for i := range nodeIDs {
		nodeIDs[i] = "node" + strconv.Itoa(i)
		root.Add(&domain.Element{
			Type: TypeCircle,
			ID:   nodeIDs[i],
			Size: domain.NewDimension(g.NodeSize, g.NodeSize),
		})
	}
	if g.Nodes < 2 {
		return root
	}

	edge := 0
	addEdge := func(src, tgt int) {
		root.Add(domain.NewEdge("edge"+strconv.Itoa(edge), nodeIDs[src], nodeIDs[tgt]))
		edge++
	}
	for n1 := 0; n1 < g.Nodes; n1++ {
		addEdge(n1, g.otherThan(n1))
	}
	for e := 0; e < g.ExtraEdges; e++ {
		n1 := g.rnd.IntN(g.Nodes)
		addEdge(n1, g.otherThan(n1))
	}
	return root
}

func (g *Generator) otherThan(n int) int {
	for {
		if m := g.rnd.IntN(g.Nodes); m != n {
			return m
		}
	}
}
