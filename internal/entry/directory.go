package entry

import (
	"os"
	"path/filepath"

	mfs "github.com/CageChen/layerhub/internal/fs"
)

// Directory is a handle on a directory.
type Directory struct {
	handle
}

// NewDirectory creates a directory handle. The directory need not exist yet.
func NewDirectory(path string) *Directory {
	return &Directory{handle{path: path}}
}

// Type returns TypeDir.
func (d *Directory) Type() Type {
	return TypeDir
}

// Create creates the directory and any missing parents.
func (d *Directory) Create(perm os.FileMode) error {
	return mfs.WrapIO("mkdir", d.path, os.MkdirAll(d.path, perm))
}

// Delete removes the directory, which must be empty.
func (d *Directory) Delete() error {
	return mfs.WrapIO("delete", d.path, os.Remove(d.path))
}

// DeleteRecursive removes the directory and everything below it.
// Symlinks are removed, never followed.
func (d *Directory) DeleteRecursive() error {
	children, err := os.ReadDir(d.path)
	if err != nil {
		return mfs.WrapIO("list", d.path, err)
	}
	for _, child := range children {
		childPath := filepath.Join(d.path, child.Name())
		var err error
		if child.IsDir() {
			err = NewDirectory(childPath).DeleteRecursive()
		} else {
			err = NewFile(childPath).Delete()
		}
		if err != nil {
			return err
		}
	}
	return d.Delete()
}
