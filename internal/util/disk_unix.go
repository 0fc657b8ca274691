//go:build linux || darwin

package util

import "golang.org/x/sys/unix"

// DiskUsage returns the available and total bytes of the filesystem holding path
func DiskUsage(path string) (avail, total uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	bsize := uint64(stat.Bsize)
	return stat.Bavail * bsize, stat.Blocks * bsize, nil
}
