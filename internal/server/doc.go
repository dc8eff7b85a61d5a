// Package server implements the per-client diagram protocol engine.
//
// A DiagramServer owns the authoritative model of one client connection. It
// accepts client actions, replaces or mutates the model, and publishes the
// result as setModel/updateModel actions through its remote endpoint. Every
// model replacement increments a revision counter; publications whose model
// revision no longer matches the live revision are dropped, which is the only
// cancellation mechanism for superseded work.
//
// # Publication
//
// Depending on the needsClientLayout and needsServerLayout options a model is
// first sent to the client for bounds computation, laid out by the configured
// LayoutEngine, or both, before it is published.
//
// # Correlation
//
// Requests issued with DiagramServer.Request are tracked by a Correlator until
// the client answers with a response carrying the same id. Continuations are
// callbacks on a Future and never block the goroutine delivering client
// messages.
//
// # Capabilities
//
// Layout, popup models and listeners are optional interfaces set after
// construction. Missing listeners are no-ops; a missing layout engine disables
// server layout.
package server
