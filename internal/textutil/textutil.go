// Package textutil provides small text helpers for display rendering.
package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayTitle derives a human-readable title from a file path: extension
// stripped, separators collapsed to spaces, title-cased.
func DisplayTitle(sourcePath string) string {
	if sourcePath == "" {
		return "Unknown"
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(title)
}

// TruncateMiddle shortens s to max runes, keeping the start and end visible.
// File lists in narrow terminals keep both the directory hint and the
// extension this way.
func TruncateMiddle(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	keep := max - 3
	front := (keep + 1) / 2
	back := keep / 2
	return string(runes[:front]) + "..." + string(runes[len(runes)-back:])
}
