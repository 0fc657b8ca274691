package meta

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FilenameHint holds what can be read from a bare file name
type FilenameHint struct {
	Title string
	Track int
}

var filenamePatterns = []struct {
	re    *regexp.Regexp
	parse func(*FilenameHint, []string)
}{
	{
		// "01 - Title.mp3"
		re: regexp.MustCompile(`^(\d{1,3})\s*-\s*(.+)$`),
		parse: func(h *FilenameHint, m []string) {
			h.Track, _ = strconv.Atoi(m[1])
			h.Title = strings.TrimSpace(m[2])
		},
	},
	{
		// "01.Title.mp3" or "01_Title.mp3"
		re: regexp.MustCompile(`^(\d{1,3})[._]\s*(.+)$`),
		parse: func(h *FilenameHint, m []string) {
			h.Track, _ = strconv.Atoi(m[1])
			h.Title = strings.TrimSpace(strings.ReplaceAll(m[2], "_", " "))
		},
	},
	{
		// "01 Title.mp3"
		re: regexp.MustCompile(`^(\d{1,3})\s+(\D.*)$`),
		parse: func(h *FilenameHint, m []string) {
			h.Track, _ = strconv.Atoi(m[1])
			h.Title = strings.TrimSpace(m[2])
		},
	},
}

// ParseFilename reads a track number and title from a file name. When no
// numbered pattern matches, the title is the name without its extension.
func ParseFilename(path string) FilenameHint {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	var hint FilenameHint
	for _, p := range filenamePatterns {
		if m := p.re.FindStringSubmatch(name); m != nil {
			p.parse(&hint, m)
			break
		}
	}

	if hint.Title == "" {
		hint.Title = name
	}
	hint.Title = CleanString(hint.Title)
	return hint
}
