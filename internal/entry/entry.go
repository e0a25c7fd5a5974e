// Package entry provides handles for resolved files and directories.
//
// A handle is a thin wrapper over a path. It does not cache metadata: every
// accessor goes to the filesystem, and every failure is returned as an
// *fs.IOError.
package entry

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mfs "github.com/CageChen/layerhub/internal/fs"
)

// Entry is the capability shared by file and directory handles.
type Entry interface {
	Path() string
	Type() Type
	Exists() bool
	Delete() error
	MoveTo(dest string) error
	RenameTo(name string) error
	SymlinkTo(dest string) error
	IsReadable() bool
	IsWritable() bool
	AccessTime() (time.Time, error)
	ModifiedTime() (time.Time, error)
	ChangeTime() (time.Time, error)
	Permissions() (os.FileMode, error)
	SetPermissions(mode os.FileMode) error
	SetPermissionsOctal(mode string) error
	String() string
}

// New returns a handle of the given type. TypeAny stats the path to decide,
// falling back to a file handle when the path does not exist.
func New(path string, typ Type) Entry {
	if typ == TypeAny {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			typ = TypeDir
		} else {
			typ = TypeFile
		}
	}
	if typ == TypeDir {
		return NewDirectory(path)
	}
	return NewFile(path)
}

type handle struct {
	path string
}

// Path returns the path the handle points at.
func (h *handle) Path() string {
	return h.path
}

func (h *handle) String() string {
	return h.path
}

// Exists reports whether the path exists, following symlinks.
func (h *handle) Exists() bool {
	_, err := os.Stat(h.path)
	return err == nil
}

// MoveTo is RenameTo.
func (h *handle) MoveTo(dest string) error {
	return h.RenameTo(dest)
}

// RenameTo renames the entry. A relative name stays in the current parent
// directory, and a name without extension keeps the current extension.
func (h *handle) RenameTo(name string) error {
	if !filepath.IsAbs(name) {
		name = filepath.Join(filepath.Dir(h.path), name)
	}
	if filepath.Ext(name) == "" {
		name += filepath.Ext(h.path)
	}
	if err := os.Rename(h.path, name); err != nil {
		return mfs.WrapIO("rename", h.path, err)
	}
	if resolved, err := filepath.EvalSymlinks(name); err == nil {
		name = resolved
	}
	h.path = name
	return nil
}

// SymlinkTo creates a symlink at dest pointing at this entry.
func (h *handle) SymlinkTo(dest string) error {
	return mfs.WrapIO("symlink", h.path, os.Symlink(h.path, dest))
}

// ModifiedTime returns the last modification time.
func (h *handle) ModifiedTime() (time.Time, error) {
	info, err := os.Stat(h.path)
	if err != nil {
		return time.Time{}, mfs.WrapIO("stat", h.path, err)
	}
	return info.ModTime(), nil
}

// AccessTime returns the last access time.
func (h *handle) AccessTime() (time.Time, error) {
	atime, _, err := statTimes(h.path)
	if err != nil {
		return time.Time{}, mfs.WrapIO("stat", h.path, err)
	}
	return atime, nil
}

// ChangeTime returns the inode change time.
func (h *handle) ChangeTime() (time.Time, error) {
	_, ctime, err := statTimes(h.path)
	if err != nil {
		return time.Time{}, mfs.WrapIO("stat", h.path, err)
	}
	return ctime, nil
}

// Permissions returns the permission bits.
func (h *handle) Permissions() (os.FileMode, error) {
	info, err := os.Stat(h.path)
	if err != nil {
		return 0, mfs.WrapIO("stat", h.path, err)
	}
	return info.Mode().Perm(), nil
}

// SetPermissions changes the permission bits.
func (h *handle) SetPermissions(mode os.FileMode) error {
	return mfs.WrapIO("chmod", h.path, os.Chmod(h.path, mode))
}

// SetPermissionsOctal accepts an octal string such as "755" or "0644".
func (h *handle) SetPermissionsOctal(mode string) error {
	digits := strings.TrimLeft(mode, "0")
	if digits == "" {
		digits = "0"
	}
	bits, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return mfs.WrapIO("chmod", h.path, err)
	}
	return h.SetPermissions(os.FileMode(bits))
}

// IsReadable reports whether the current process may read the entry.
func (h *handle) IsReadable() bool {
	return accessible(h.path, readAccess)
}

// IsWritable reports whether the current process may write the entry.
func (h *handle) IsWritable() bool {
	return accessible(h.path, writeAccess)
}

var (
	_ Entry = (*File)(nil)
	_ Entry = (*Directory)(nil)
)
