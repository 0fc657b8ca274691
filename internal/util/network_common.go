package util

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// NetworkInfo contains information about a filesystem's network characteristics
type NetworkInfo struct {
	IsNetwork bool   // Whether the filesystem is network-mounted
	Protocol  string // Protocol (smb, nfs, cifs, etc.) or empty if local
	MountPath string // Mount point of the filesystem
}

// networkFsNames are substrings of filesystem type names served over the network
var networkFsNames = []string{"nfs", "cifs", "smb", "ncpfs", "afpfs", "webdav", "fuse.sshfs", "fuse.rclone"}

// DetectNetworkFilesystem checks if a path is on a network-mounted filesystem.
// Music folders on SMB/CIFS or NFS shares want smaller worker pools and
// SQLite files there want conservative pragmas.
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return detectPlatformNetwork(absPath)
}

// IsNetworkPath checks if a path is on a network filesystem (convenience function)
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		return false
	}
	return info.IsNetwork
}

func isNetworkFsName(name string) bool {
	name = strings.ToLower(name)
	for _, n := range networkFsNames {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// parseMounts reads a /proc/mounts style table into mount point -> fs type
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[fields[1]] = fields[2]
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}

// mountFor returns the longest mount point containing path, and its type
func mountFor(mounts map[string]string, path string) (string, string) {
	best, bestType := "", ""
	for mountPoint, fsType := range mounts {
		within := path == mountPoint ||
			mountPoint == "/" ||
			strings.HasPrefix(path, strings.TrimSuffix(mountPoint, "/")+"/")
		if within && len(mountPoint) > len(best) {
			best, bestType = mountPoint, fsType
		}
	}
	return best, bestType
}
