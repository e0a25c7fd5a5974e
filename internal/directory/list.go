// Package directory enumerates directory contents with a depth budget,
// a filter and a type restriction.
package directory

import (
	"path/filepath"

	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/filter"
	mfs "github.com/CageChen/layerhub/internal/fs"
)

// Infinite is the depth budget that never runs out.
const Infinite = -1

// Options controls a listing.
type Options struct {
	// Depth is the remaining recursion budget: 0 lists the immediate level,
	// n descends n more levels, and Infinite (or any negative value) has no limit.
	Depth int
	// Filter is applied to the raw candidates of every level. Nil means no filter.
	Filter filter.Spec
	// Type restricts the listing to files or directories.
	Type entry.Type
	// Pattern is a glob matched against entry names. Empty means "*".
	Pattern string
}

// Node is one listed entry. Children is set for directories that were
// descended into.
type Node struct {
	Path     string
	Type     entry.Type
	Children *Listing
}

// Listing holds the entries of one directory in enumeration order.
type Listing struct {
	Path  string
	Nodes []Node
}

// Paths returns every path in the listing, depth-first, parents before children.
func (l *Listing) Paths() []string {
	var paths []string
	l.walk(func(n Node) {
		paths = append(paths, n.Path)
	})
	return paths
}

// Entries returns a handle for every path in the listing, in Paths order.
func (l *Listing) Entries() []entry.Entry {
	var entries []entry.Entry
	l.walk(func(n Node) {
		entries = append(entries, entry.New(n.Path, n.Type))
	})
	return entries
}

func (l *Listing) walk(fn func(Node)) {
	if l == nil {
		return
	}
	for _, n := range l.Nodes {
		fn(n)
		n.Children.walk(fn)
	}
}

// Lister lists directories through a FileSystem.
type Lister struct {
	fs mfs.FileSystem
}

// New creates a Lister. A nil fsys uses the local filesystem.
func New(fsys mfs.FileSystem) *Lister {
	return &Lister{fs: mfs.OrDefault(fsys)}
}

// List enumerates dir. An unreadable directory at any level fails the whole
// listing with an *fs.IOError.
func (l *Lister) List(dir string, opts Options) (*Listing, error) {
	f, err := filter.Resolve(opts.Filter, l.fs)
	if err != nil {
		return nil, err
	}

	pattern := opts.Pattern
	if pattern == "" {
		pattern = "*"
	}
	if opts.Type == entry.TypeFile && filepath.Ext(pattern) == "" {
		pattern += ".*"
	}

	depth := opts.Depth
	if depth < 0 {
		depth = Infinite
	}

	w := &walker{
		fs:      l.fs,
		filter:  f,
		typ:     opts.Type,
		pattern: pattern,
		visited: make(map[string]bool),
	}
	return w.list(filepath.Clean(dir), depth)
}

type walker struct {
	fs      mfs.FileSystem
	filter  *filter.Filter
	typ     entry.Type
	pattern string
	visited map[string]bool
}

func (w *walker) list(dir string, depth int) (*Listing, error) {
	listing := &Listing{Path: dir}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canonical = dir
	}
	if w.visited[canonical] {
		return listing, nil
	}
	w.visited[canonical] = true

	children, err := w.fs.ReadDir(dir)
	if err != nil {
		return nil, mfs.WrapIO("list", dir, err)
	}

	candidates := make([]string, 0, len(children))
	for _, child := range children {
		matched, err := filepath.Match(w.pattern, child.Name)
		if err != nil {
			return nil, err
		}
		if matched {
			candidates = append(candidates, filepath.Join(dir, child.Name))
		}
	}

	candidates, err = w.filter.Apply(candidates)
	if err != nil {
		return nil, err
	}

	// Classify the whole level through the filter's type memo before
	// descending; recursive calls reset it.
	kinds := make([]entry.Type, len(candidates))
	for i, path := range candidates {
		isDir, err := w.filter.IsType(entry.TypeDir, path)
		if err != nil {
			return nil, err
		}
		isFile, err := w.filter.IsType(entry.TypeFile, path)
		if err != nil {
			return nil, err
		}
		switch {
		case isDir:
			kinds[i] = entry.TypeDir
		case isFile:
			kinds[i] = entry.TypeFile
		}
	}

	next := depth
	if next > 0 {
		next--
	}

	for i, path := range candidates {
		switch {
		case kinds[i] == entry.TypeDir && w.typ != entry.TypeFile:
			node := Node{Path: path, Type: entry.TypeDir}
			if depth != 0 {
				node.Children, err = w.list(path, next)
				if err != nil {
					return nil, err
				}
			}
			listing.Nodes = append(listing.Nodes, node)
		case kinds[i] == entry.TypeFile && w.typ != entry.TypeDir:
			listing.Nodes = append(listing.Nodes, Node{Path: path, Type: entry.TypeFile})
		}
	}
	return listing, nil
}

// ListFiles returns the paths of the files in dir.
func (l *Lister) ListFiles(dir string, depth int, spec filter.Spec) ([]string, error) {
	listing, err := l.List(dir, Options{Depth: depth, Filter: spec, Type: entry.TypeFile})
	if err != nil {
		return nil, err
	}
	return listing.Paths(), nil
}

// ListDirs returns the paths of the directories in dir and, within the depth
// budget, below it.
func (l *Lister) ListDirs(dir string, depth int, spec filter.Spec) ([]string, error) {
	listing, err := l.List(dir, Options{Depth: depth, Filter: spec, Type: entry.TypeDir})
	if err != nil {
		return nil, err
	}
	return listing.Paths(), nil
}

// ListFileEntries is ListFiles returning file handles.
func (l *Lister) ListFileEntries(dir string, depth int, spec filter.Spec) ([]entry.Entry, error) {
	listing, err := l.List(dir, Options{Depth: depth, Filter: spec, Type: entry.TypeFile})
	if err != nil {
		return nil, err
	}
	return listing.Entries(), nil
}

// ListDirEntries is ListDirs returning directory handles.
func (l *Lister) ListDirEntries(dir string, depth int, spec filter.Spec) ([]entry.Entry, error) {
	listing, err := l.List(dir, Options{Depth: depth, Filter: spec, Type: entry.TypeDir})
	if err != nil {
		return nil, err
	}
	return listing.Entries(), nil
}
