// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
//
// # Usage
//
// Two spellings of the same address ("Alice@X.com " and "alice@x.com") must hit
// the same unique index, and visually identical Unicode must not create two
// accounts. Every identifier goes through NFC normalization first.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Email returns the canonical form of an email address: NFC, trimmed, lower-case.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Username returns the canonical form of a username: NFC and trimmed.
// Case is preserved for display. Uniqueness ignores case.
func Username(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Name trims a display name, strips control characters and collapses inner
// whitespace runs to a single space.
func Name(s string) string {
	cleaned, _, _ := transform.String(transform.Chain(norm.NFC, runes.Remove(runes.Predicate(unicode.IsControl))), s)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Identifier canonicalizes a login identifier, which may be a username or an
// email address. Email-shaped values are lower-cased.
func Identifier(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}
	return Username(s)
}
