// Package domain defines the diagram model tree shared by the protocol server,
// the layout engine and the graph codecs.
//
// A diagram is a single root Element owning an ordered tree of child elements.
// Every element has an ID that is unique within its tree and a Type string
// such as "graph", "node:circle", "edge" or "label".
//
// # Model Index
//
// Walk, Find and AllIDs traverse a tree depth-first in pre-order, visiting the
// children of an element in stored order. Index caches an id lookup table for
// repeated queries against a tree that is not being mutated.
//
// # Geometry
//
// Point, Dimension and Bounds carry the layout data that clients compute
// (ElementAndBounds, ElementAndAlignment) and that ApplyBounds writes back into
// a tree.
//
// # Design Principles
//
// - Trees are replaced, not patched; Clone produces an independent deep copy
// - No transport or storage dependencies
package domain
