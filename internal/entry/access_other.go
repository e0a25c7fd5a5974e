//go:build !unix

package entry

import "os"

const (
	readAccess  uint32 = 4
	writeAccess uint32 = 2
)

func accessible(path string, mode uint32) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if mode == writeAccess {
		return info.Mode().Perm()&0o200 != 0
	}
	return true
}
