package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Clean strips markup tags, control characters, and whitespace runs from
// provider text. Headlines and story bodies pass through here before any
// filtering or analysis; an empty result means there is nothing to analyze.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = tagPattern.ReplaceAllString(text, " ")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
}

// Truncate shortens text to at most max runes, appending an ellipsis when
// anything was cut. Non-positive max returns the input unchanged.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

var titleCaser = cases.Fold()

// NormalizeTitle produces a case-folded, whitespace-collapsed form of a
// headline for duplicate comparison.
func NormalizeTitle(title string) string {
	return titleCaser.String(Clean(title))
}

// TitleCase renders a token in display casing for CLI output.
func TitleCase(value string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(value))
}

// ContainsJapanese reports whether the text carries any hiragana, katakana,
// or unified ideograph characters.
func ContainsJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
