package server

import (
	"errors"
	"fmt"
)

var (
	// ErrNilModel is returned when a nil model is submitted
	ErrNilModel = errors.New("model must not be nil")
	// ErrServerClosed fails requests still pending when the server closes
	ErrServerClosed = errors.New("diagram server closed")
	// ErrNoLayoutEngine is returned by explicit layouts without an engine
	ErrNoLayoutEngine = errors.New("no layout engine configured")
)

// RejectedError is the failure of a request the client rejected
type RejectedError struct {
	RequestID string
	Message   string
	Detail    string
}

func (e *RejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request %s rejected: %s (%s)", e.RequestID, e.Message, e.Detail)
	}
	return fmt.Sprintf("request %s rejected: %s", e.RequestID, e.Message)
}
