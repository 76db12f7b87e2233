// Package search turns untrusted search input into a parameterized SQLite
// FTS5 query.
//
// Input is reduced to whitelisted tokens (letters, digits and alphabetic
// marks), held in a structured Query, and only rendered to FTS5 syntax at
// the very end by Query.Match. The rendered expression is always bound as a
// statement parameter; it never becomes part of the SQL text.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenize splits s on Unicode whitespace, strips every rune that is not a
// letter, digit or other alphabetic character, lower-cases each token with
// full Unicode case mapping and drops tokens left empty.
//
// Full case mapping can expand a rune, for example "İ" becomes "i" followed
// by U+0307 COMBINING DOT ABOVE.
func Tokenize(s string) []string {
	lower := cases.Lower(language.Und)

	var tokens []string
	for _, field := range strings.Fields(s) {
		kept := strings.Map(func(r rune) rune {
			if isTokenRune(r) {
				return r
			}
			return -1
		}, field)
		if kept == "" {
			continue
		}
		tokens = append(tokens, lower.String(kept))
	}
	return tokens
}

// FTSQuery renders the tokens of s as a conjunction of exact FTS5 terms,
// e.g. `"a" AND "b" AND "c"`. It returns "" when s has no tokens.
func FTSQuery(s string) string {
	tokens := Tokenize(s)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = Term{Text: tok}.render()
	}
	return strings.Join(terms, " AND ")
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Other_Alphabetic, r)
}

// isTermRune is the set of runes a term may hold after case mapping, which
// can introduce combining marks.
func isTermRune(r rune) bool {
	return isTokenRune(r) || unicode.IsMark(r)
}
