package finder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	mfs "github.com/CageChen/layerhub/internal/fs"
)

// Normalize canonicalizes raw into an absolute, symlink-free directory path
// with exactly one trailing separator. With a non-empty root, the result must
// lie at or below root, compared by whole path segments.
func Normalize(raw, root string) (string, error) {
	abs, err := absolute(raw)
	if err != nil {
		return "", &PathError{Op: "normalize", Path: raw, Err: err}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", &PathError{Op: "normalize", Path: raw, Err: ErrPathNotFound}
	}
	if err != nil {
		return "", mfs.WrapIO("normalize", raw, err)
	}

	resolved = withSeparator(resolved)
	if root != "" && !within(resolved, root) {
		return "", &PathError{Op: "normalize", Path: resolved, Root: root, Err: ErrRootEscape}
	}
	return resolved, nil
}

// absolute cleans raw without touching the filesystem.
func absolute(raw string) (string, error) {
	p := strings.ReplaceAll(raw, `\`, "/")
	return filepath.Abs(filepath.Clean(p))
}

// lexical is Normalize without symlink resolution or existence checks.
func lexical(raw string) (string, error) {
	abs, err := absolute(raw)
	if err != nil {
		return "", err
	}
	return withSeparator(abs), nil
}

func withSeparator(p string) string {
	return strings.TrimSuffix(p, "/") + "/"
}

func within(path, root string) bool {
	return strings.HasPrefix(withSeparator(path), withSeparator(root))
}
