//go:build unix

package entry

import "golang.org/x/sys/unix"

const (
	readAccess  uint32 = unix.R_OK
	writeAccess uint32 = unix.W_OK
)

func accessible(path string, mode uint32) bool {
	return unix.Access(path, mode) == nil
}
