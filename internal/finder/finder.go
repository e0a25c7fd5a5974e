// Package finder resolves logical names across an ordered set of search
// paths and caches the answers.
//
// A lookup walks the search paths forward or reversed and stops at the first
// match (ModeOne) or collects every match (ModeAll). Each cached result
// remembers the search paths it consulted, so removing a path only drops
// the answers that depended on it. Adding a path, or changing the default
// extension, drops the whole cache. A ModeOne miss is never cached.
package finder

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/CageChen/layerhub/internal/entry"
	mfs "github.com/CageChen/layerhub/internal/fs"
	"github.com/CageChen/layerhub/internal/logger"
)

// DefaultExtension is used when no default extension is configured.
const DefaultExtension = "php"

// Finder is safe for concurrent use. One mutex covers path mutations and the
// whole consult, resolve and populate sequence of a lookup.
type Finder struct {
	mu      sync.Mutex
	fs      mfs.FileSystem
	paths   []string
	root    string
	ext     string
	cache   *Cache
	metrics Metrics
}

// New creates a Finder.
func New(opts ...Option) (*Finder, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	f := &Finder{
		fs:      mfs.OrDefault(o.fs),
		ext:     DefaultExtension,
		cache:   NewCache(),
		metrics: o.metrics,
	}
	if ext := strings.TrimPrefix(o.ext, "."); ext != "" {
		f.ext = ext
	}
	if o.root != "" {
		if err := f.SetRoot(o.root); err != nil {
			return nil, err
		}
	}
	if err := f.AddPaths(o.paths...); err != nil {
		return nil, err
	}
	return f, nil
}

// AddPath registers a search path. Adding a registered path is a no-op;
// otherwise the whole cache is invalidated.
func (f *Finder) AddPath(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	added, err := f.addLocked(path)
	if err != nil {
		return err
	}
	if added {
		f.invalidateAllLocked("add")
	}
	return nil
}

// AddPathNoInvalidate registers a search path and keeps the cache. Cached
// answers that the new path would change stay stale until reloaded.
func (f *Finder) AddPathNoInvalidate(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.addLocked(path)
	return err
}

// AddPaths registers several search paths in order. If any path is invalid
// none are added.
func (f *Finder) AddPaths(paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	normalized, err := f.normalizeAll(paths)
	if err != nil {
		return err
	}
	added := false
	for _, p := range normalized {
		if f.insertLocked(p) {
			added = true
		}
	}
	if added {
		f.invalidateAllLocked("add")
	}
	return nil
}

// SetPaths replaces every search path. If any path is invalid nothing changes.
func (f *Finder) SetPaths(paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	normalized, err := f.normalizeAll(paths)
	if err != nil {
		return err
	}
	f.paths = nil
	for _, p := range normalized {
		f.insertLocked(p)
	}
	f.recordPathsLocked()
	f.invalidateAllLocked("set")
	return nil
}

func (f *Finder) normalizeAll(paths []string) ([]string, error) {
	normalized := make([]string, 0, len(paths))
	for _, raw := range paths {
		p, err := Normalize(raw, f.root)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, p)
	}
	return normalized, nil
}

func (f *Finder) addLocked(raw string) (bool, error) {
	p, err := Normalize(raw, f.root)
	if err != nil {
		return false, err
	}
	return f.insertLocked(p), nil
}

func (f *Finder) insertLocked(p string) bool {
	if slices.Contains(f.paths, p) {
		return false
	}
	f.paths = append(f.paths, p)
	f.recordPathsLocked()
	logger.Debug("finder: added search path %s", p)
	return true
}

// RemovePath unregisters a search path and invalidates only the cached
// answers that consulted it. A path that no longer exists on disk is
// matched lexically. Removing an unknown path is a no-op.
func (f *Finder) RemovePath(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(path)
}

// RemovePaths unregisters several search paths.
func (f *Finder) RemovePaths(paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := f.removeLocked(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Finder) removeLocked(raw string) error {
	p, err := Normalize(raw, "")
	if errors.Is(err, ErrPathNotFound) {
		p, err = lexical(raw)
	}
	if err != nil {
		return err
	}

	i := slices.Index(f.paths, p)
	if i < 0 {
		return nil
	}
	f.paths = slices.Delete(f.paths, i, i+1)
	f.recordPathsLocked()

	n := f.cache.InvalidateByPath(p)
	f.recordInvalidationLocked("remove", n)
	logger.Debug("finder: removed search path %s, dropped %d cached lookups", p, n)
	return nil
}

// Paths returns the registered search paths in insertion order.
func (f *Finder) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.paths)
}

// SetRoot confines search paths to root. The root can be set once; setting
// the same root again is a no-op. Already registered paths must lie under it.
func (f *Finder) SetRoot(root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := Normalize(root, "")
	if errors.Is(err, ErrPathNotFound) {
		return &PathError{Op: "set root", Path: root, Err: ErrInvalidRoot}
	}
	if err != nil {
		return err
	}
	if f.root != "" {
		if f.root == p {
			return nil
		}
		return &PathError{Op: "set root", Path: p, Root: f.root, Err: ErrRootLocked}
	}
	for _, existing := range f.paths {
		if !within(existing, p) {
			return &PathError{Op: "set root", Path: existing, Root: p, Err: ErrRootEscape}
		}
	}
	f.root = p
	return nil
}

// Root returns the normalized root, or "" when none is set.
func (f *Finder) Root() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root
}

// SetDefaultExtension changes the extension appended to names without one.
// A change invalidates the whole cache.
func (f *Finder) SetDefaultExtension(ext string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ext = strings.TrimPrefix(ext, ".")
	if ext == f.ext {
		return
	}
	f.ext = ext
	f.invalidateAllLocked("extension")
}

// DefaultExtension returns the extension appended to names without one.
func (f *Finder) DefaultExtension() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ext
}

// ClearCache drops every cached lookup and reports how many were dropped.
func (f *Finder) ClearCache() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidateAllLocked("clear")
}

// CacheLen returns the number of cached lookups.
func (f *Finder) CacheLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Len()
}

// Cached returns the cached answer for q without resolving it.
func (f *Finder) Cached(q Query) (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.lookupFor(q)
	if !ok {
		return Result{}, false
	}
	r, ok := f.cache.Get(l.key)
	return r.clone(), ok
}

func (f *Finder) invalidateAllLocked(reason string) int {
	n := f.cache.InvalidateAll()
	f.recordInvalidationLocked(reason, n)
	if n > 0 {
		logger.Debug("finder: cache cleared (%s), dropped %d lookups", reason, n)
	}
	return n
}

func (f *Finder) recordInvalidationLocked(reason string, n int) {
	if f.metrics != nil {
		f.metrics.RecordInvalidation(reason, n)
	}
}

func (f *Finder) recordPathsLocked() {
	if f.metrics != nil {
		f.metrics.RecordSearchPaths(len(f.paths))
	}
}

// lookup is a query with its names resolved against the default extension.
type lookup struct {
	key      Key
	fileName string
	dirName  string
}

func (f *Finder) lookupFor(q Query) (lookup, bool) {
	name := strings.Trim(q.Name, "/")
	fileName := name
	if q.Type != entry.TypeDir && filepath.Ext(name) == "" && f.ext != "" {
		fileName = name + "." + f.ext
	}
	if !filepath.IsLocal(name) || !filepath.IsLocal(fileName) {
		return lookup{}, false
	}

	keyName := fileName
	if q.Type == entry.TypeDir {
		keyName = name
	}
	return lookup{
		key: Key{
			Mode:      q.Mode,
			Type:      q.Type,
			Name:      keyName,
			Direction: q.Direction,
		},
		fileName: fileName,
		dirName:  name,
	}, true
}

// Resolve runs a lookup. A ModeOne miss returns an empty Result.
// Names that are empty or climb out of a search path never match.
func (f *Finder) Resolve(q Query) Result {
	start := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.lookupFor(q)
	if !ok {
		f.observeLocked(q.Mode, false, false, start)
		return Result{}
	}

	if !q.Reload {
		if r, hit := f.cache.Get(l.key); hit {
			f.observeLocked(q.Mode, true, r.Found(), start)
			return r.clone()
		}
	}

	result, deps := f.search(l)
	if result.Found() || l.key.Mode == ModeAll {
		f.cache.Put(l.key, result, deps)
	} else if q.Reload {
		// A reloaded miss must not leave the old positive answer behind.
		f.cache.remove(l.key)
	}
	f.observeLocked(q.Mode, false, result.Found(), start)
	logger.Debug("finder: %s %s %s %q -> %d match(es), consulted %d path(s)",
		l.key.Mode, l.key.Direction, l.key.Type, l.key.Name, len(result.Matches), len(deps))
	return result.clone()
}

func (f *Finder) search(l lookup) (Result, []string) {
	order := f.paths
	if l.key.Direction == Reversed {
		order = slices.Clone(f.paths)
		slices.Reverse(order)
	}

	var result Result
	deps := make([]string, 0, len(order))
	for _, base := range order {
		deps = append(deps, base)

		if l.key.Type.Allows(entry.TypeFile) {
			path := base + l.fileName
			if f.isType(path, false) {
				result.Matches = append(result.Matches, Match{Path: path, Type: entry.TypeFile})
				if l.key.Mode == ModeOne {
					break
				}
			}
		}
		if l.key.Type.Allows(entry.TypeDir) {
			path := base + l.dirName
			if f.isType(path, true) {
				result.Matches = append(result.Matches, Match{Path: path, Type: entry.TypeDir})
				if l.key.Mode == ModeOne {
					break
				}
			}
		}
	}
	return result, deps
}

func (f *Finder) isType(path string, dir bool) bool {
	info, err := f.fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir == dir
}

func (f *Finder) observeLocked(mode Mode, cached, found bool, start time.Time) {
	if f.metrics != nil {
		f.metrics.ObserveLookup(mode, cached, found, time.Since(start))
	}
}
