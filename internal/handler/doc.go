// Package handler implements the HTTP surface of diagramd next to the
// WebSocket endpoint.
//
// # Routes
//
//	GET /api/status               hub statistics
//	GET /api/clients/{id}/model   current model of a client (?format=json|yaml)
//	GET /api/clients/{id}/state   revision, selection and expansion of a client
//
// The WebSocket hub is mounted at the configured path and an optional static
// directory is served at /.
//
// # Response Format
//
// Success responses return JSON data with status 200. Error responses return
// JSON with {error, details} structure.
//
// # Middleware
//
// Chain applies Recover and Logger around the router. The status recorder
// used by Logger keeps the connection hijackable for WebSocket upgrades.
package handler
