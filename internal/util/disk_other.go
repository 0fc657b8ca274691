//go:build !linux && !darwin

package util

import "fmt"

// DiskUsage is not available on this platform
func DiskUsage(path string) (avail, total uint64, err error) {
	return 0, 0, fmt.Errorf("%w: disk usage", ErrUnsupported)
}
