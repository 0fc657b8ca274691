package util

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectNetworkFilesystem_TempDir(t *testing.T) {
	tmpDir := t.TempDir()

	info, err := DetectNetworkFilesystem(tmpDir)
	require.NoError(t, err)

	// Temp dir should almost always be local
	if info.IsNetwork {
		t.Logf("WARNING: Temp directory is on network storage (%s)", info.Protocol)
	}
}

func TestDetectNetworkFilesystem_NonExistent(t *testing.T) {
	_, err := DetectNetworkFilesystem("/this/path/does/not/exist/hopefully")
	assert.Error(t, err)
	assert.False(t, IsNetworkPath("/this/path/does/not/exist/hopefully"), "false when detection fails")
}

func TestParseMounts(t *testing.T) {
	table := `sysfs /sys sysfs rw,nosuid 0 0
/dev/sda1 / ext4 rw,relatime 0 0
//nas/music /mnt/music cifs rw,vers=3.0 0 0
nas:/export /mnt/nfs nfs4 rw 0 0
malformed
`
	mounts, err := parseMounts(strings.NewReader(table))
	require.NoError(t, err)
	assert.Len(t, mounts, 4)
	assert.Equal(t, "cifs", mounts["/mnt/music"])
}

func TestMountFor(t *testing.T) {
	mounts := map[string]string{
		"/":          "ext4",
		"/mnt/music": "cifs",
		"/mnt/nfs":   "nfs4",
	}

	tests := []struct {
		path      string
		wantMount string
		network   bool
	}{
		{"/home/user/Music", "/", false},
		{"/mnt/music", "/mnt/music", true},
		{"/mnt/music/Artist/Album", "/mnt/music", true},
		{"/mnt/musicbox", "/", false},
		{"/mnt/nfs/x", "/mnt/nfs", true},
	}
	for _, tt := range tests {
		mount, fsType := mountFor(mounts, tt.path)
		assert.Equal(t, tt.wantMount, mount, "mountFor(%s)", tt.path)
		assert.Equal(t, tt.network, isNetworkFsName(fsType), "isNetworkFsName(%s)", fsType)
	}
}

func TestDiskUsage(t *testing.T) {
	avail, total, err := DiskUsage(os.TempDir())
	if err != nil {
		t.Skipf("disk usage unavailable: %v", err)
	}
	assert.NotZero(t, total)
	assert.LessOrEqual(t, avail, total)
}
