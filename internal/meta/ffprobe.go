package meta

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/franz/crate/internal/util"
)

// FFprobeInfo represents the output from ffprobe
type FFprobeInfo struct {
	Streams []FFprobeStream `json:"streams"`
	Format  *FFprobeFormat  `json:"format"`
}

// IntOrString can unmarshal both integers and strings from JSON
type IntOrString struct {
	Value int
}

// UnmarshalJSON implements custom unmarshaling for IntOrString
func (i *IntOrString) UnmarshalJSON(data []byte) error {
	var intVal int
	if err := json.Unmarshal(data, &intVal); err == nil {
		i.Value = intVal
		return nil
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err != nil {
		return err
	}

	// "N/A" and garbage decode to 0
	parsed, err := strconv.Atoi(strVal)
	if err != nil {
		i.Value = 0
		return nil
	}
	i.Value = parsed
	return nil
}

// FFprobeStream represents an audio stream
type FFprobeStream struct {
	Index     int         `json:"index"`
	CodecName string      `json:"codec_name"`
	CodecType string      `json:"codec_type"`
	Channels  int         `json:"channels"`
	Bits      IntOrString `json:"bits_per_sample"`
	Duration  string      `json:"duration"`
}

// FFprobeFormat represents container format metadata
type FFprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// RunFFprobe executes ffprobe and parses the JSON output
func RunFFprobe(ctx context.Context, path string) (*FFprobeInfo, error) {
	if !CheckFFprobeAvailable() {
		return nil, fmt.Errorf("ffprobe: %w", util.ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	return parseFFprobe(output)
}

func parseFFprobe(output []byte) (*FFprobeInfo, error) {
	var info FFprobeInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &info, nil
}

// DurationMs returns the playing time in milliseconds, preferring the
// container duration over the first audio stream's. Zero when unknown.
func (i *FFprobeInfo) DurationMs() int64 {
	if i.Format != nil {
		if ms := secondsToMs(i.Format.Duration); ms > 0 {
			return ms
		}
	}
	for _, s := range i.Streams {
		if s.CodecType != "audio" {
			continue
		}
		if ms := secondsToMs(s.Duration); ms > 0 {
			return ms
		}
	}
	return 0
}

func secondsToMs(s string) int64 {
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || sec <= 0 {
		return 0
	}
	return int64(math.Round(sec * 1000))
}

// ProbeDuration runs ffprobe on path and returns the duration in ms
func ProbeDuration(ctx context.Context, path string) (int64, error) {
	info, err := RunFFprobe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.DurationMs(), nil
}

// CheckFFprobeAvailable checks if ffprobe is available in PATH
func CheckFFprobeAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}
