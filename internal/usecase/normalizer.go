package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Package-level compiled patterns; ASCII punctuation and whitespace only
var (
	punctuationRunRegex = regexp.MustCompile("[!-/:-@\\[-`{-~]+")
	whitespaceRunRegex  = regexp.MustCompile(`[ \t\n\v\f\r]+`)
)

// Normalize lowercases s, deletes punctuation and collapses whitespace to
// single spaces. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// cases.Caser keeps state, so a new one is needed per call
	result := cases.Lower(language.Und).String(s)
	result = punctuationRunRegex.ReplaceAllString(result, "")
	result = whitespaceRunRegex.ReplaceAllString(result, " ")
	return strings.Trim(result, " ")
}

// Tokenize splits a normalized string on single spaces, dropping empty tokens
func Tokenize(s string) []string {
	parts := strings.Split(s, " ")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}

// tokenSet returns the distinct tokens of a query
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
