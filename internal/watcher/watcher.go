// Package watcher reloads the graph file when it changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"diagramd/internal/domain"
	"diagramd/internal/loader"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
)

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	ready    chan struct{}
}

// New creates a new file watcher
func New(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		ready:    make(chan struct{}),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Ready is closed once the watch is established
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs. onChange runs
// on the watching goroutine, once per burst of events.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file so that editors replacing the
	// file are still seen
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return err
	}
	close(w.ready)

	glog.Infof("[watch] watching %s for changes", w.path)

	debounce := time.NewTimer(w.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				glog.V(2).Infof("[watch] %s", event)
				debounce.Reset(w.debounce)
			}

		case <-debounce.C:
			glog.Infof("[watch] file changed: %s", w.path)
			w.onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.Warningf("[watch] watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reload returns an onChange callback that loads the graph at path and hands
// it to apply. Files that fail to load are logged and skipped, so the last
// good model stays in place.
func Reload(path string, apply func(*domain.Element)) func() {
	return func() {
		root, err := loader.LoadGraph(path)
		if err != nil {
			glog.Errorf("[watch] reload skipped: %v", err)
			return
		}
		apply(root)
	}
}
