package note

import (
	"path/filepath"
	"strings"
	"unicode"
)

const fallbackStem = "image"

// SanitizeStem makes an original file stem safe to embed in a note filename.
// Spaces, path separators, control characters, Windows-reserved characters
// and the URL delimiters # and % become underscores. Surrounding dots are trimmed so the result never names
// a parent directory or a hidden file.
func SanitizeStem(stem string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '/', r == '\\', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return '_'
		case r == '#', r == '%':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, stem)
	out = strings.Trim(out, ".")
	if out == "" {
		return fallbackStem
	}
	return out
}

// StemOf returns the base name of path without its extension.
func StemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
