// Package fs provides the filesystem seam the layer engine reads through.
package fs

import (
	"os"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
}

// IsRegular reports whether the entry is a regular file.
func (i FileInfo) IsRegular() bool {
	return i.Mode.IsRegular()
}

// DirEntry represents a single directory entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem abstracts the read operations used by finders, filters and
// listers so callers can swap in an instrumented or fake implementation.
// Stat follows symlinks. ReadDir returns entries sorted by name.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
}

// OrDefault returns fsys, or the absolute-path local filesystem when fsys is nil.
func OrDefault(fsys FileSystem) FileSystem {
	if fsys == nil {
		return NewLocalFS("")
	}
	return fsys
}
