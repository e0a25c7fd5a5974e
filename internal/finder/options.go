package finder

import (
	"time"

	mfs "github.com/CageChen/layerhub/internal/fs"
)

// Metrics receives lookup and cache statistics. A nil Metrics disables them.
type Metrics interface {
	ObserveLookup(mode Mode, cached, found bool, d time.Duration)
	RecordInvalidation(reason string, n int)
	RecordSearchPaths(n int)
}

type options struct {
	paths   []string
	ext     string
	root    string
	fs      mfs.FileSystem
	metrics Metrics
}

// Option configures a Finder at construction.
type Option func(*options)

// WithPaths registers initial search paths, in order.
func WithPaths(paths ...string) Option {
	return func(o *options) {
		o.paths = append(o.paths, paths...)
	}
}

// WithDefaultExtension sets the extension appended to names without one.
// An empty value keeps DefaultExtension.
func WithDefaultExtension(ext string) Option {
	return func(o *options) {
		o.ext = ext
	}
}

// WithRoot confines every search path to root. It is applied before the
// initial paths are registered.
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithFileSystem sets the filesystem probes go through.
func WithFileSystem(fsys mfs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithMetrics reports lookups and invalidations to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
