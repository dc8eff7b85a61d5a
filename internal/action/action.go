// Package action defines the kinded messages exchanged between a diagram
// client and the server, and the JSON wire codec that carries them.
//
// Every action reports its wire kind. Actions that expect an answer embed
// Request; answers embed Response and echo the request id as their response
// id. A RejectAction is the failure answer to any request.
package action

// Action is a tagged protocol message
type Action interface {
	Kind() string
}

// RequestAction is an action the receiver must answer with a ResponseAction
type RequestAction interface {
	Action
	GetRequestID() string
	SetRequestID(id string)
}

// ResponseAction answers the request whose id it carries
type ResponseAction interface {
	Action
	GetResponseID() string
}

// Request is embedded by request actions
type Request struct {
	RequestID string `json:"requestId,omitempty"`
}

// GetRequestID returns the request id, empty for an uncorrelated request
func (r *Request) GetRequestID() string { return r.RequestID }

// SetRequestID sets the request id
func (r *Request) SetRequestID(id string) { r.RequestID = id }

// Response is embedded by response actions
type Response struct {
	ResponseID string `json:"responseId,omitempty"`
}

// GetResponseID returns the id of the request being answered
func (r *Response) GetResponseID() string { return r.ResponseID }

// Message addresses an action to or from one client
type Message struct {
	ClientID string
	Action   Action
}

// RequestIDOf returns the request id if a is a request action
func RequestIDOf(a Action) string {
	if req, ok := a.(RequestAction); ok {
		return req.GetRequestID()
	}
	return ""
}
