// Package classify labels free-text music queries as lyrics-like or
// title-like, driving which backend order the resolver uses. The heuristic is
// known-imprecise: false positives and negatives are acceptable, the resolver
// falls back across sources either way.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// lyricsTokenThreshold is the token count at and above which free text is
// assumed to be a lyric fragment rather than a title.
const lyricsTokenThreshold = 4

// lyricsKeywords are affection/emotion terms and lyric markers, in English
// and romanized Hindi. A single hit classifies the query as lyrics-like.
var lyricsKeywords = map[string]bool{
	"lyrics":   true,
	"love":     true,
	"heart":    true,
	"baby":     true,
	"forever":  true,
	"pyar":     true,
	"pyaar":    true,
	"ishq":     true,
	"mohabbat": true,
	"dil":      true,
	"jaan":     true,
	"sanam":    true,
	"deewana":  true,
	"bewafa":   true,
	"aashiqui": true,
}

// stopwords are common function words in the two supported languages. Titles
// rarely contain them; lyric fragments almost always do.
var stopwords = map[string]bool{
	// English.
	"the": true, "is": true, "a": true, "an": true, "of": true,
	"in": true, "to": true, "you": true, "me": true, "my": true,
	"and": true, "for": true, "with": true, "your": true,
	// Romanized Hindi.
	"hai": true, "ho": true, "ka": true, "ki": true, "ke": true,
	"mein": true, "main": true, "tum": true, "tera": true, "teri": true,
	"mera": true, "meri": true, "mujhe": true, "tujhe": true, "se": true,
}

var (
	punctRun      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Result is the classifier verdict for one query. Derived, never persisted.
type Result struct {
	IsLyricsLike bool
}

// Classify labels a raw query. Pure and deterministic; rules are checked in
// order and the first match wins:
//  1. lyrics keyword or repeated-syllable hit,
//  2. token count at or above the lyric threshold,
//  3. stopword hit in either supported language,
//  4. otherwise title-like.
func Classify(query string) Result {
	normalized := normalize(query)
	if normalized == "" {
		return Result{IsLyricsLike: false}
	}

	tokens := strings.Fields(normalized)
	if hasRepeatedSyllable(tokens) {
		return Result{IsLyricsLike: true}
	}
	for _, token := range tokens {
		if lyricsKeywords[token] {
			return Result{IsLyricsLike: true}
		}
	}

	if len(tokens) >= lyricsTokenThreshold {
		return Result{IsLyricsLike: true}
	}

	for _, token := range tokens {
		if stopwords[token] {
			return Result{IsLyricsLike: true}
		}
	}

	return Result{IsLyricsLike: false}
}

// hasRepeatedSyllable reports explicit repeated-syllable patterns such as
// "na na na" or "la la", a strong lyric marker. RE2 has no backreferences,
// so repetition is detected by comparing adjacent tokens.
func hasRepeatedSyllable(tokens []string) bool {
	for i := 1; i < len(tokens); i++ {
		if tokens[i] != tokens[i-1] || !isShortSyllable(tokens[i]) {
			continue
		}
		return true
	}
	return false
}

// isShortSyllable reports whether a token is a 2 or 3 letter run.
func isShortSyllable(token string) bool {
	if n := utf8.RuneCountInString(token); n < 2 || n > 3 {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func normalize(query string) string {
	text := norm.NFKC.String(query)
	text = strings.ToLower(text)
	text = punctRun.ReplaceAllString(text, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
