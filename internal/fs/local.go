package fs

import (
	"os"
	"path/filepath"
)

// LocalFS reads the local disk. Absolute paths are used as given; relative
// paths resolve against root, or the working directory when root is empty.
type LocalFS struct {
	root string
}

// NewLocalFS creates a LocalFS resolving relative paths against root.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: root}
}

// Root returns the directory relative paths are resolved against.
func (l *LocalFS) Root() string {
	return l.root
}

func (l *LocalFS) resolve(path string) string {
	if l.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.root, path)
}

// ReadFile reads a whole file.
func (l *LocalFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(l.resolve(path))
}

// Stat returns metadata for path, following symlinks.
func (l *LocalFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(l.resolve(path))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}, nil
}

// ReadDir lists the immediate children of path in name order. Symlinks to
// directories report IsDir false, as os.ReadDir does.
func (l *LocalFS) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(l.resolve(path))
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return result, nil
}
