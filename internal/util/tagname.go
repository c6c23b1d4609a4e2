// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Matches any run of whitespace.
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTagName converts user input to the canonical display name of a tag.
// Unlike a slug, the name keeps its case and punctuation; only its encoding
// and spacing are canonicalized so that visually identical names compare equal.
//
// Normalization rules:
//  1. Compose to Unicode NFC
//  2. Drop control characters
//  3. Collapse whitespace runs to a single space
//  4. Trim leading/trailing whitespace
//
// Examples:
//
//	"  Go   Generics " → "Go Generics"
//	"Cafe\u0301"       → "Caf\u00e9"
//	"tab\tseparated"   → "tab separated"
func NormalizeTagName(input string) string {
	s := norm.NFC.String(input)

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	s = whitespaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
