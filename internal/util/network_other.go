//go:build !linux && !darwin

package util

import "os"

// detectPlatformNetwork assumes a local filesystem on unsupported platforms
func detectPlatformNetwork(path string) (*NetworkInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return &NetworkInfo{}, nil
}
