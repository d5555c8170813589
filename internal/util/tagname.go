// Package util provides common utility functions.
package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TagKey converts a free-form tag name to its comparison key.
// Two names with the same key are the same tag within an owner scope.
//
// Normalization rules:
//  1. Trim surrounding whitespace
//  2. Compose Unicode (NFC) so "é" typed two ways compares equal
//  3. Lowercase
//
// Interior whitespace is kept: "read later" and "read  later" are different keys.
//
// Examples:
//
//	"Work"      → "work"
//	" WORK "    → "work"
//	"Read Later" → "read later"
func TagKey(name string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(name)))
}

// TagDisplayName returns the name as it should be stored: trimmed and
// NFC-composed, with the casing the user typed.
func TagDisplayName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizedTagNames holds a de-duplicated set of tag names in input order.
type NormalizedTagNames struct {
	Keys    []string          // comparison keys, first-seen order
	Display map[string]string // key → first-seen display name
}

// NormalizeTagNames trims, drops empties and de-duplicates names by TagKey.
// The first spelling seen for a key wins.
func NormalizeTagNames(names []string) NormalizedTagNames {
	out := NormalizedTagNames{
		Keys:    make([]string, 0, len(names)),
		Display: make(map[string]string, len(names)),
	}
	for _, name := range names {
		key := TagKey(name)
		if key == "" {
			continue
		}
		if _, seen := out.Display[key]; seen {
			continue
		}
		out.Keys = append(out.Keys, key)
		out.Display[key] = TagDisplayName(name)
	}
	return out
}
