package handler

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is outermost
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recover turns a handler panic into a 500 response
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				glog.Errorf("[http] panic serving %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, "Internal server error", fmt.Sprint(err), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Logger logs each request with its status and duration
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		glog.V(1).Infof("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// NewRouter mounts the API, the WebSocket endpoint and the optional static
// root, wrapped in the standard middleware
func NewRouter(api *APIHandler, ws http.Handler, wsPath, staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", api.Status)
	mux.HandleFunc("GET /api/clients/{id}/model", api.ClientModel)
	mux.HandleFunc("GET /api/clients/{id}/state", api.ClientState)

	mux.Handle("GET "+wsPath, ws)

	if staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
	}

	return Chain(mux,
		Recover,
		Logger,
	)
}
