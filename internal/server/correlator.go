package server

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"diagramd/internal/action"
)

// Future is the single-assignment result of a correlated request
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	resp      action.ResponseAction
	err       error
	callbacks []func(action.ResponseAction, error)
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete settles the future. Only the first call has an effect.
func (f *Future) complete(resp action.ResponseAction, err error) bool {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return false
	default:
	}
	f.resp, f.err = resp, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(resp, err)
	}
	return true
}

// Then registers a continuation. It runs on the goroutine that settles the
// future, or immediately if the future is already settled.
func (f *Future) Then(fn func(action.ResponseAction, error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		resp, err := f.resp, f.err
		f.mu.Unlock()
		fn(resp, err)
		return
	default:
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// Done is closed once the future is settled
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx ends
func (f *Future) Wait(ctx context.Context) (action.ResponseAction, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Correlator tracks outbound requests until their responses arrive
type Correlator struct {
	prefix  string
	next    atomic.Uint64
	mu      sync.Mutex
	pending map[string]*Future
}

// NewCorrelator creates a correlator generating ids "<prefix>_<n>"
func NewCorrelator(prefix string) *Correlator {
	return &Correlator{
		prefix:  prefix,
		pending: make(map[string]*Future),
	}
}

// NextID returns a new request id, unique for this correlator
func (c *Correlator) NextID() string {
	return c.prefix + "_" + strconv.FormatUint(c.next.Add(1), 10)
}

// Register assigns an id to req if it has none and returns the future that
// the matching response will settle. A pending request with the same id is
// replaced.
func (c *Correlator) Register(req action.RequestAction) *Future {
	if req.GetRequestID() == "" {
		req.SetRequestID(c.NextID())
	}
	f := newFuture()
	c.mu.Lock()
	c.pending[req.GetRequestID()] = f
	c.mu.Unlock()
	return f
}

// Resolve settles the request answered by resp. It reports false when no
// request with that id is pending, e.g. for late or duplicate responses.
func (c *Correlator) Resolve(resp action.ResponseAction) bool {
	id := resp.GetResponseID()
	if id == "" {
		return false
	}
	c.mu.Lock()
	f, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return false
	}

	if reject, ok := resp.(*action.RejectAction); ok {
		f.complete(nil, &RejectedError{RequestID: id, Message: reject.Message, Detail: reject.Detail})
	} else {
		f.complete(resp, nil)
	}
	return true
}

// Cancel fails a pending request
func (c *Correlator) Cancel(id string, err error) bool {
	c.mu.Lock()
	f, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return false
	}
	return f.complete(nil, err)
}

// Pending returns the number of unanswered requests
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close fails every pending request with err
func (c *Correlator) Close(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*Future)
	c.mu.Unlock()
	for _, f := range pending {
		f.complete(nil, err)
	}
}
