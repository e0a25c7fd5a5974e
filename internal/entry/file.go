package entry

import (
	"io"
	"os"

	mfs "github.com/CageChen/layerhub/internal/fs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/flock"
)

// File is a handle on a regular file.
type File struct {
	handle
}

// NewFile creates a file handle. The file need not exist yet.
func NewFile(path string) *File {
	return &File{handle{path: path}}
}

// Type returns TypeFile.
func (f *File) Type() Type {
	return TypeFile
}

// Delete removes the file.
func (f *File) Delete() error {
	return mfs.WrapIO("delete", f.path, os.Remove(f.path))
}

// Contents returns the file contents.
func (f *File) Contents() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, mfs.WrapIO("read", f.path, err)
	}
	return data, nil
}

// Append appends data while holding an exclusive lock on the file.
func (f *File) Append(data []byte) error {
	return f.locked("append", func() error {
		out, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
}

// Update replaces the file contents while holding an exclusive lock on the file.
func (f *File) Update(data []byte) error {
	return f.locked("update", func() error {
		return os.WriteFile(f.path, data, 0o644)
	})
}

// locked creates the file when missing, takes an exclusive advisory lock on it
// and runs fn.
func (f *File) locked(op string, fn func() error) error {
	created, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return mfs.WrapIO(op, f.path, err)
	}
	_ = created.Close()

	lock := flock.New(f.path)
	if err := lock.Lock(); err != nil {
		return mfs.WrapIO(op, f.path, err)
	}
	defer func() { _ = lock.Unlock() }()

	return mfs.WrapIO(op, f.path, fn())
}

// CopyTo copies the file to dest, keeping its permission bits.
func (f *File) CopyTo(dest string) error {
	in, err := os.Open(f.path)
	if err != nil {
		return mfs.WrapIO("copy", f.path, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return mfs.WrapIO("copy", f.path, err)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return mfs.WrapIO("copy", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return mfs.WrapIO("copy", dest, err)
	}
	return mfs.WrapIO("copy", dest, out.Close())
}

// Size returns the file size in bytes.
func (f *File) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, mfs.WrapIO("stat", f.path, err)
	}
	return info.Size(), nil
}

// MimeType detects the media type from the file contents, e.g. "text/plain; charset=utf-8".
func (f *File) MimeType() (string, error) {
	mime, err := mimetype.DetectFile(f.path)
	if err != nil {
		return "", mfs.WrapIO("detect", f.path, err)
	}
	return mime.String(), nil
}
