package transcript

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize reduces a title or label to its match key:
// 1. Drop every character outside [A-Za-z0-9]
// 2. Lowercase
//
// Non-ASCII letters and digits are dropped as well, so "Café" and "Caf" share a key.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// LabelFromFilename strips the directory and the fixed extension from a transcript filename.
// The extension is only removed when it matches ext exactly (".txt" for transcript files).
func LabelFromFilename(name, ext string) string {
	base := filepath.Base(name)
	if ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// DisplayTitle turns a slug-like filename label into something readable for reports:
// "minnesota-ghost_daycares" -> "Minnesota Ghost Daycares".
func DisplayTitle(label string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range label {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(b.String())
	if title == "" {
		return "Untitled"
	}
	return cases.Title(language.Und).String(title)
}
