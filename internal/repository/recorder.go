package repository

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"diagramd/internal/domain"
	"diagramd/internal/server"
)

// Recorder is a server.ModelUpdateListener that saves node geometry of
// every submitted model. Saves happen on a background goroutine; when
// publications arrive faster than they are written only the latest one is
// saved.
type Recorder struct {
	store   PositionStore
	diagram string
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]domain.Bounds

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewRecorder starts a recorder writing to store under the diagram name
func NewRecorder(store PositionStore, diagram string) *Recorder {
	r := &Recorder{
		store:   store,
		diagram: diagram,
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// ModelSubmitted implements server.ModelUpdateListener
func (r *Recorder) ModelSubmitted(root *domain.Element, _ *server.State) {
	geometry := NodeGeometry(root)
	if len(geometry) == 0 {
		return
	}
	r.mu.Lock()
	r.pending = geometry
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for {
		select {
		case <-r.wake:
			r.flush()
		case <-r.stop:
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	r.mu.Lock()
	geometry := r.pending
	r.pending = nil
	r.mu.Unlock()
	if geometry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.SavePositions(ctx, r.diagram, geometry); err != nil {
		glog.Errorf("[store] %s: saving %d positions: %v", r.diagram, len(geometry), err)
		return
	}
	glog.V(2).Infof("[store] %s: saved %d positions", r.diagram, len(geometry))
}

// Close writes any pending geometry and stops the recorder
func (r *Recorder) Close() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}
