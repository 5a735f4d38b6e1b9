//go:build !windows

package api

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// diskFreeSpace returns the bytes available to unprivileged users at path
func diskFreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	if stat.Bsize <= 0 {
		return 0, fmt.Errorf("invalid block size %d for %s", stat.Bsize, path)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
