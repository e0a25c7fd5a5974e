//go:build linux

package entry

import (
	"time"

	"golang.org/x/sys/unix"
)

func statTimes(path string) (atime, ctime time.Time, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return time.Unix(st.Atim.Unix()), time.Unix(st.Ctim.Unix()), nil
}
