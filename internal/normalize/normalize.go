// Package normalize provides the string canonicalization used for every
// dedup, blacklist, and matching comparison in the discovery pipeline.
// Two names with the same canonical key are the same entity everywhere
// in driftwave.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// artistDelimiters are the multi-artist separators recognized by SplitArtists,
// longest first so " feat. " wins over " / " inside the same string.
var artistDelimiters = []string{
	" feat. ",
	" featuring ",
	" ft. ",
	" vs. ",
	", ",
	" & ",
	" / ",
	" x ",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SplitArtists splits a raw artist credit into individual artist names.
// Delimiters inside parenthesized or bracketed suffixes are left alone, and
// empty segments are dropped. If splitting yields nothing usable the raw
// name is returned as a single entry.
func SplitArtists(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	segments := []string{raw}
	for _, delim := range artistDelimiters {
		var next []string
		for _, seg := range segments {
			next = append(next, splitOutsideParens(seg, delim)...)
		}
		segments = next
	}

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return []string{raw}
	}
	return out
}

// splitOutsideParens splits s on delim, ignoring occurrences nested inside
// parentheses or square brackets.
func splitOutsideParens(s, delim string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		}
		if depth == 0 && strings.HasPrefix(s[i:], delim) {
			parts = append(parts, s[start:i])
			i += len(delim) - 1
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// CanonicalKey reduces a name to its comparison form: diacritics stripped,
// punctuation removed, whitespace collapsed, uppercased. Idempotent.
func CanonicalKey(name string) string {
	if stripped, _, err := transform.String(stripMarks, name); err == nil {
		name = stripped
	}

	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		// Remaining punctuation is dropped entirely.
	}
	return strings.TrimSpace(b.String())
}

// ignorePrefixes are leading articles that libraries commonly move to the
// end of a sort name ("Beatles, The").
var ignorePrefixes = []string{"The", "A", "An"}

// FixPrefixes converts a sort-ordered name back to its display order, so
// "Beatles, The" becomes "The Beatles" before the name is sent to an
// external provider. Names already in display order pass through unchanged.
func FixPrefixes(name string) string {
	trimmed := strings.TrimSpace(name)
	idx := strings.LastIndex(trimmed, ", ")
	if idx < 0 {
		return trimmed
	}
	suffix := strings.TrimSpace(trimmed[idx+2:])
	for _, prefix := range ignorePrefixes {
		if strings.EqualFold(suffix, prefix) {
			return suffix + " " + trimmed[:idx]
		}
	}
	return trimmed
}

// Tokens returns the canonical tokens of s with length >= 3, the unit of
// comparison for partial title matching.
func Tokens(s string) []string {
	fields := strings.Fields(CanonicalKey(s))
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
