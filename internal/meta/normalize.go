package meta

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanString performs basic string cleaning (Unicode, control chars, trim, collapse)
func CleanString(s string) string {
	if s == "" {
		return ""
	}

	// Unicode NFC normalization
	s = norm.NFC.String(s)

	// Tag frames are often NUL padded
	s = removeControlChars(s)

	return collapseWhitespace(s)
}

// Fold reduces s to a lower-case ASCII form for matching.
// "Björk  Guðmundsdóttir" folds to "bjork gudmundsdottir".
func Fold(s string) string {
	s = CleanString(s)
	if s == "" {
		return ""
	}
	s = unidecode.Unidecode(s)
	return collapseWhitespace(strings.ToLower(s))
}

// Words splits a folded string into words, dropping punctuation
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// collapseWhitespace replaces runs of whitespace with a single space
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// removeControlChars removes non-printable control characters
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}
