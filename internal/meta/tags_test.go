package meta

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// id3v23 builds a minimal ID3v2.3 tag from text frames
func id3v23(frames map[string]string) []byte {
	var body bytes.Buffer
	for _, id := range []string{"TIT2", "TPE1", "TALB", "TPE2", "TRCK", "TPOS", "TYER", "TCMP"} {
		text, ok := frames[id]
		if !ok {
			continue
		}
		body.WriteString(id)
		binary.Write(&body, binary.BigEndian, uint32(len(text)+1))
		body.Write([]byte{0, 0}) // flags
		body.WriteByte(0)        // ISO-8859-1
		body.WriteString(text)
	}

	size := body.Len()
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	return append(header, body.Bytes()...)
}

func TestReadTags(t *testing.T) {
	data := id3v23(map[string]string{
		"TIT2": "  Teardrop ",
		"TPE1": "Massive  Attack",
		"TALB": "Mezzanine",
		"TPE2": "Massive Attack",
		"TRCK": "3/11",
		"TPOS": "1/1",
		"TYER": "1998",
	})

	tags, err := ReadTags(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "Teardrop", tags.Title)
	assert.Equal(t, "Massive Attack", tags.Artist, "whitespace collapsed")
	assert.Equal(t, "Mezzanine", tags.Album)
	assert.Equal(t, "Massive Attack", tags.AlbumArtist)
	assert.Equal(t, 3, tags.Track)
	assert.Equal(t, 1998, tags.Year)
	assert.False(t, tags.Compilation)
}

func TestReadTagsCompilation(t *testing.T) {
	data := id3v23(map[string]string{
		"TIT2": "Song",
		"TPE1": "Someone",
		"TALB": "Hits",
		"TCMP": "1",
	})

	tags, err := ReadTags(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, tags.Compilation, "compilation flag from TCMP")
}

func TestReadTagsUnsupported(t *testing.T) {
	_, err := ReadTags(bytes.NewReader([]byte("definitely not audio")))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/music/a.mp3", id3v23(map[string]string{"TIT2": "A", "TPE1": "B"}), 0644))

	tags, err := ReadFile(context.Background(), fs, "/music/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "A", tags.Title)
	assert.Equal(t, "B", tags.Artist)

	_, err = ReadFile(context.Background(), fs, "/music/missing.mp3")
	assert.Error(t, err)
}

func TestCompilationFlag(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want bool
	}{
		{"id3 string", map[string]interface{}{"TCMP": "1"}, true},
		{"padded string", map[string]interface{}{"TCMP": "1\x00"}, true},
		{"mp4 bool", map[string]interface{}{"cpil": true}, true},
		{"vorbis word", map[string]interface{}{"COMPILATION": "true"}, true},
		{"int", map[string]interface{}{"compilation": 1}, true},
		{"zero", map[string]interface{}{"TCMP": "0"}, false},
		{"garbage", map[string]interface{}{"TCMP": "yes please"}, false},
		{"missing", map[string]interface{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compilationFlag(tt.raw))
		})
	}
}
