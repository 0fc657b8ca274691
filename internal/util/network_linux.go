//go:build linux

package util

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Linux VFS magic numbers of network filesystems
var networkMagic = map[int64]string{
	0x6969:     "nfs",
	0xff534d42: "cifs",
	0x517b:     "smb",
	0xfe534d42: "smb2",
	0x564c:     "ncp",
}

// detectPlatformNetwork detects network filesystems on Linux
func detectPlatformNetwork(path string) (*NetworkInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil, err
	}

	info := &NetworkInfo{}
	if proto, found := networkMagic[int64(uint32(stat.Type))]; found {
		info.IsNetwork = true
		info.Protocol = proto
	}

	// /proc/mounts confirms the protocol and gives the mount point; FUSE
	// mounts like sshfs are only visible here
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return info, nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return info, nil
	}

	mountPoint, fsType := mountFor(mounts, path)
	if mountPoint != "" && isNetworkFsName(fsType) {
		info.IsNetwork = true
		info.Protocol = strings.ToLower(fsType)
		info.MountPath = mountPoint
	} else if info.IsNetwork {
		info.MountPath = mountPoint
	}

	return info, nil
}
