package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTuneForPathsForced(t *testing.T) {
	on, off := true, false

	tests := []struct {
		name    string
		forced  *bool
		base    int
		want    int
		network bool
	}{
		{"forced on caps workers", &on, 16, 4, true},
		{"forced on keeps small pools", &on, 3, 3, true},
		{"forced on with no base", &on, 0, 2, true},
		{"forced off", &off, 16, 16, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TuneForPaths([]string{"/anything"}, tt.forced, tt.base)
			assert.Equal(t, tt.want, got.Concurrency)
			assert.Equal(t, tt.network, got.IsNetwork)
		})
	}
}

func TestTuneForPathsLocal(t *testing.T) {
	dir := t.TempDir()
	if IsNetworkPath(dir) {
		t.Skip("temp dir is on network storage")
	}

	got := TuneForPaths([]string{"", dir, "/does/not/exist"}, nil, 8)
	assert.False(t, got.IsNetwork, "local settings are untouched")
	assert.Equal(t, 8, got.Concurrency)
	assert.Equal(t, "local filesystem", got.Describe())
}
