// Package repository persists diagram layout.
//
// A PositionStore keeps the geometry of nodes per diagram so a restarted
// server can show a graph the way it was last laid out. The sqlite
// subpackage implements the store; Recorder feeds it from model
// publications without blocking the publishing server.
//
// # Schema
//
//	positions(diagram, element_id, x, y, width, height)
//
// keyed by (diagram, element_id). Saving upserts; elements missing from a
// publication keep their last stored geometry.
package repository
