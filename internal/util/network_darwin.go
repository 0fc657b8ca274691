//go:build darwin

package util

import (
	"strings"

	"golang.org/x/sys/unix"
)

// detectPlatformNetwork detects network filesystems on macOS
func detectPlatformNetwork(path string) (*NetworkInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil, err
	}

	info := &NetworkInfo{}
	fsTypeName := strings.ToLower(unix.ByteSliceToString(stat.Fstypename[:]))
	if isNetworkFsName(fsTypeName) || strings.Contains(fsTypeName, "osxfuse") {
		info.IsNetwork = true
		info.Protocol = fsTypeName
		info.MountPath = unix.ByteSliceToString(stat.Mntonname[:])
	}

	return info, nil
}
