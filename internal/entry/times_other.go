//go:build !linux

package entry

import (
	"os"
	"time"
)

// Platforms without a portable atime/ctime report the modification time.
func statTimes(path string) (atime, ctime time.Time, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return info.ModTime(), info.ModTime(), nil
}
