package handler

import (
	"bytes"
	"net/http"

	"diagramd/internal/codec"
	"diagramd/internal/hub"
	"diagramd/internal/server"

	"github.com/goccy/go-json"
	"github.com/golang/glog"
)

// Clients is the part of the hub the API reads from
type Clients interface {
	Stats() hub.Stats
	Lookup(clientID string) (*server.DiagramServer, bool)
}

// APIHandler handles API requests
type APIHandler struct {
	clients Clients
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(clients Clients) *APIHandler {
	return &APIHandler{clients: clients}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ClientState is the diagram state of one client
type ClientState struct {
	ClientID  string   `json:"clientId"`
	Revision  int      `json:"revision"`
	ModelType string   `json:"modelType"`
	Selected  []string `json:"selected"`
	Expanded  []string `json:"expanded"`
}

// Status returns the hub statistics
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.clients.Stats(), http.StatusOK)
}

// ClientModel returns a copy of the current model of a client
func (h *APIHandler) ClientModel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	_, exporter, err := codec.ForFormat(format)
	if err != nil {
		writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(s.Snapshot(), &buf); err != nil {
		glog.Errorf("[http] export model of %s: %v", s.ClientID(), err)
		writeError(w, "Failed to export model", err.Error(), http.StatusInternalServerError)
		return
	}

	if exporter.Format() == "yaml" {
		w.Header().Set("Content-Type", "application/x-yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ClientState returns the revision, selection and expansion of a client
func (h *APIHandler) ClientState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	st := s.State()
	writeJSON(w, ClientState{
		ClientID:  st.ClientID(),
		Revision:  st.Revision(),
		ModelType: st.CurrentModel().Type,
		Selected:  st.SelectedElements(),
		Expanded:  st.ExpandedElements(),
	}, http.StatusOK)
}

func (h *APIHandler) lookup(w http.ResponseWriter, r *http.Request) (*server.DiagramServer, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "Invalid client ID", "Client ID is required", http.StatusBadRequest)
		return nil, false
	}
	s, ok := h.clients.Lookup(id)
	if !ok {
		writeError(w, "Not found", "no diagram server for client "+id, http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		glog.Warningf("[http] failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   error,
		Details: details,
	}, statusCode)
}
