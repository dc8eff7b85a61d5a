package domain

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Element {
	return NewRoot(TypeGraph, "graph").Add(
		NewNode("n1", 60, 60).Add(&Element{Type: TypeLabel, ID: "n1-label", Text: "one"}),
		NewNode("n2", 60, 60),
		NewEdge("e1", "n1", "n2"),
	)
}

func TestWalk(t *testing.T) {
	t.Run("visits in pre-order with children in stored order", func(t *testing.T) {
		var ids []string
		Walk(sampleTree(), func(e *Element) bool {
			ids = append(ids, e.ID)
			return true
		})
		assert.Equal(t, []string{"graph", "n1", "n1-label", "n2", "e1"}, ids)
	})

	t.Run("stops when callback returns false", func(t *testing.T) {
		count := 0
		Walk(sampleTree(), func(e *Element) bool {
			count++
			return e.ID != "n1"
		})
		assert.Equal(t, 2, count)
	})

	t.Run("nil root and nil children are skipped", func(t *testing.T) {
		Walk(nil, func(*Element) bool {
			t.Fatal("callback should not run for nil root")
			return true
		})

		root := NewRoot(TypeGraph, "g")
		root.Children = append(root.Children, nil, NewNode("n", 1, 1))
		assert.Len(t, AllIDs(root), 2)
	})

	t.Run("deep trees do not recurse", func(t *testing.T) {
		root := NewRoot(TypeGraph, "g")
		cur := root
		for i := 0; i < 100000; i++ {
			child := &Element{Type: TypeNode, ID: "n" + strconv.Itoa(i)}
			cur.Children = []*Element{child}
			cur = child
		}
		assert.NotNil(t, Find(root, cur.ID))
	})
}

func TestFind(t *testing.T) {
	root := sampleTree()

	t.Run("finds nested element", func(t *testing.T) {
		e := Find(root, "n1-label")
		require.NotNil(t, e)
		assert.Equal(t, "one", e.Text)
	})

	t.Run("finds root", func(t *testing.T) {
		assert.Same(t, root, Find(root, "graph"))
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		assert.Nil(t, Find(root, "missing"))
	})
}

func TestAllIDs(t *testing.T) {
	ids := AllIDs(sampleTree())
	assert.Len(t, ids, 5)
	for _, id := range []string{"graph", "n1", "n1-label", "n2", "e1"} {
		assert.Contains(t, ids, id)
	}
}

func TestIndex(t *testing.T) {
	root := sampleTree()
	idx := NewIndex(root)

	assert.Equal(t, 5, idx.Len())
	assert.True(t, idx.Contains("e1"))
	assert.False(t, idx.Contains("e2"))
	assert.Same(t, Find(root, "n2"), idx.Get("n2"))
	assert.Equal(t, AllIDs(root), idx.IDs())
}
