// Package filename derives client-facing download names from user-supplied titles.
package filename

import (
	"regexp"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultBase   = "merged_video"
	MaxBaseLength = 100
	Extension     = ".mp4"
)

var (
	disallowed = regexp.MustCompile(`[^A-Za-z0-9_\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Base turns a title into a filesystem-safe base name. Accents are folded to
// their base letters, every other character outside letters, digits,
// whitespace, hyphen and underscore is dropped, whitespace runs become a single
// underscore and the result is capped at MaxBaseLength characters. Leading and
// trailing whitespace is not trimmed, so " a " yields "_a_". DefaultBase is
// used only when nothing survives the strip.
func Base(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	clean := disallowed.ReplaceAllString(folded, "")
	clean = whitespace.ReplaceAllString(clean, "_")
	if len(clean) > MaxBaseLength {
		clean = clean[:MaxBaseLength]
	}
	if clean == "" {
		return DefaultBase
	}
	return clean
}

// FromTitle returns the download name for title, extension included
func FromTitle(title string) string {
	return Base(title) + Extension
}
