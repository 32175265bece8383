// Package course models the curriculum a bot teaches from: sections, items,
// the legacy flat module list, and the stable identifiers that tie student
// progress records to curriculum entries.
package course

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes accented runes and strips the combining marks,
// so "Café" slugs the same as "Cafe".
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// MakeID derives a stable identifier from a hierarchical path of titles,
// e.g. MakeID("Phase 1", "The Funnel Doctor") -> "phase-1/the-funnel-doctor".
// The result is deterministic across processes, so client and server agree
// on item identity without coordination. IDs are frozen at authoring time:
// a later title edit must not regenerate them, or existing progress records
// are silently orphaned.
func MakeID(parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("make id: at least one path part is required")
	}

	slugs := make([]string, len(parts))
	for i, part := range parts {
		slugs[i] = slugify(part)
	}
	return strings.Join(slugs, "/"), nil
}

// MakeItemID derives the identifier for an item within a section.
func MakeItemID(sectionTitle, itemTitle string) (string, error) {
	return MakeID(sectionTitle, itemTitle)
}

// MakeSectionID derives the identifier for a section.
func MakeSectionID(sectionTitle string) (string, error) {
	return MakeID(sectionTitle)
}

// slugify lowercases, trims, folds diacritics, drops everything outside
// [a-z0-9\s_-], and collapses whitespace/underscore/hyphen runs to a single
// hyphen with no leading or trailing hyphen.
func slugify(text string) string {
	if folded, _, err := transform.String(foldDiacritics, text); err == nil {
		text = folded
	}
	text = strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	b.Grow(len(text))
	pendingHyphen := false
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-':
			pendingHyphen = true
		}
	}
	return b.String()
}
