package meta

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dhowden/tag"
	"github.com/spf13/afero"
	"github.com/spf13/cast"

	"github.com/franz/crate/internal/util"
)

// Tags holds the cleaned tag fields a track descriptor is built from
type Tags struct {
	Format      string
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Track       int
	Disc        int
	Year        int
	Compilation bool
}

// Different formats use different keys: TCMP (ID3v2), cpil (MP4), COMPILATION (Vorbis)
var compilationKeys = []string{"TCMP", "TCP", "cpil", "COMPILATION", "compilation", "Compilation"}

// ReadTags reads the tag block of an audio stream
func ReadTags(r io.ReadSeeker) (*Tags, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	t := &Tags{
		Format:      string(m.Format()),
		Title:       CleanString(m.Title()),
		Artist:      CleanString(m.Artist()),
		Album:       CleanString(m.Album()),
		AlbumArtist: CleanString(m.AlbumArtist()),
		Year:        m.Year(),
	}
	t.Track, _ = m.Track()
	t.Disc, _ = m.Disc()
	t.Compilation = compilationFlag(m.Raw())

	return t, nil
}

// ReadFile opens path on fs and reads its tags. Transient open errors
// (busy network shares) are retried.
func ReadFile(ctx context.Context, fs afero.Fs, path string) (*Tags, error) {
	f, err := util.RetryWithBackoff(ctx, util.DefaultRetryConfig(), "open "+path, func() (afero.File, error) {
		return fs.Open(path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ReadTags(f)
}

func compilationFlag(raw map[string]interface{}) bool {
	for _, key := range compilationKeys {
		val, ok := raw[key]
		if !ok {
			continue
		}
		if s, ok := val.(string); ok {
			val = strings.TrimSpace(strings.Trim(s, "\x00"))
		}
		if b, err := cast.ToBoolE(val); err == nil && b {
			return true
		}
	}
	return false
}
