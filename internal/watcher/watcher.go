// Package watcher monitors layer directories and keeps a finder's cache
// coherent with structural changes on disk.
package watcher

import (
	"os"
	"strings"
	"sync"

	"github.com/CageChen/layerhub/internal/directory"
	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/filter"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/CageChen/layerhub/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

// File system event types.
const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	}
	return "unknown"
}

// Structural reports whether the event can change which paths exist.
func (t EventType) Structural() bool {
	return t != EventWrite
}

// Event represents a file system change event
type Event struct {
	Type EventType
	Path string
	// Invalidated is the number of cached lookups dropped because of the event.
	Invalidated int
}

// Callback is a function called when file changes occur
type Callback func(Event)

// Watcher watches every layer of a finder. Creates, removes and renames
// clear the finder cache, since any cached answer may now be wrong.
type Watcher struct {
	watcher   *fsnotify.Watcher
	finder    *finder.Finder
	lister    *directory.Lister
	spec      filter.Spec
	callbacks []Callback
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
}

// New creates a watcher for the layers of f. Entries rejected by spec are
// neither watched nor reported; hidden directories are never watched.
func New(f *finder.Finder, spec filter.Spec) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: w,
		finder:  f,
		lister:  directory.New(nil),
		spec:    spec,
		done:    make(chan struct{}),
	}, nil
}

// OnChange registers a callback for file change events
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start watches every current layer and begins dispatching events.
func (w *Watcher) Start() error {
	for _, layer := range w.finder.Paths() {
		if err := w.Watch(layer); err != nil {
			logger.Warn("failed to watch layer %s: %v", layer, err)
		}
	}

	go w.eventLoop()
	return nil
}

// Watch adds layer and every visible directory below it.
func (w *Watcher) Watch(layer string) error {
	layer = strings.TrimSuffix(layer, "/")
	dirs, err := w.lister.ListDirs(layer, directory.Infinite, w.dirFilter())
	if err != nil {
		return err
	}

	for _, dir := range append([]string{layer}, dirs...) {
		if err := w.watcher.Add(dir); err != nil {
			logger.Warn("cannot watch %s: %v", dir, err)
		}
	}
	logger.Debug("watching %s (%d directories)", layer, len(dirs)+1)
	return nil
}

// Unwatch stops watching layer and everything below it.
func (w *Watcher) Unwatch(layer string) {
	prefix := strings.TrimSuffix(layer, "/")
	for _, dir := range w.watcher.WatchList() {
		if dir == prefix || strings.HasPrefix(dir, prefix+"/") {
			_ = w.watcher.Remove(dir)
		}
	}
}

func (w *Watcher) dirFilter() filter.Spec {
	return filter.Combine(w.spec, filter.Configure(func(f *filter.Filter) error {
		f.BlockHidden(entry.TypeDir)
		return nil
	}))
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) eventLoop() {
	// Only this goroutine uses the resolved filter.
	f, err := filter.Resolve(w.spec, nil)
	if err != nil {
		logger.Error("watcher filter: %v", err)
		f = filter.New(nil)
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(f, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(f *filter.Filter, event fsnotify.Event) {
	if kept, err := f.Apply([]string{event.Name}); err != nil || len(kept) == 0 {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
		// If a new directory is created, watch it
		if isDir(event.Name) {
			if err := w.Watch(event.Name); err != nil {
				logger.Warn("cannot watch %s: %v", event.Name, err)
			}
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRename
	default:
		return
	}

	e := Event{Type: eventType, Path: event.Name}
	if eventType.Structural() {
		e.Invalidated = w.finder.ClearCache()
	}
	logger.Debug("%s %s (dropped %d cached lookups)", eventType, event.Name, e.Invalidated)

	w.mu.RLock()
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
