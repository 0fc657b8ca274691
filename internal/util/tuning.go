package util

import "fmt"

// NetworkTuning holds settings adjusted for where the data lives
type NetworkTuning struct {
	Concurrency int
	IsNetwork   bool
	Detected    *NetworkInfo
}

// maxNetworkConcurrency caps tag readers on network shares, which often
// limit concurrent connections
const maxNetworkConcurrency = 4

// TuneForPaths detects whether any of paths is on network storage and
// returns tuned settings. A non-nil forced overrides detection.
func TuneForPaths(paths []string, forced *bool, baseConcurrency int) *NetworkTuning {
	t := &NetworkTuning{Concurrency: baseConcurrency}

	if forced != nil {
		t.IsNetwork = *forced
		if t.IsNetwork {
			applyNetworkTuning(t)
			DebugLog("Network mode: explicitly enabled")
		}
		return t
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := DetectNetworkFilesystem(p)
		if err != nil {
			DebugLog("Failed to detect filesystem for %s: %v", p, err)
			continue
		}
		if info.IsNetwork {
			t.IsNetwork = true
			t.Detected = info
			break
		}
	}

	if t.IsNetwork {
		applyNetworkTuning(t)
		InfoLog("Network filesystem detected: %s", t.Describe())
		if t.Concurrency != baseConcurrency {
			InfoLog("  Concurrency: %d -> %d workers", baseConcurrency, t.Concurrency)
		}
	}
	return t
}

func applyNetworkTuning(t *NetworkTuning) {
	if t.Concurrency > maxNetworkConcurrency {
		t.Concurrency = maxNetworkConcurrency
	} else if t.Concurrency <= 0 {
		t.Concurrency = 2
	}
}

// Describe returns a one-line summary of the tuning
func (t *NetworkTuning) Describe() string {
	if !t.IsNetwork {
		return "local filesystem"
	}
	if t.Detected == nil {
		return fmt.Sprintf("network mode (forced), %d workers", t.Concurrency)
	}
	return fmt.Sprintf("%s mount at %s, %d workers", t.Detected.Protocol, t.Detected.MountPath, t.Concurrency)
}
