package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/lostfound/core"
)

// Surface returns the text a report is matched on: its title, a single
// space, and its description.
func Surface(report *core.Report) string {
	return report.Title + " " + report.Description
}

// Tokenize lowercases text, splits it into runs of two or more word
// characters and drops English stop words.
func Tokenize(text string) []string {
	return tokenize(text, englishStopWords)
}

func tokenize(text string, stop StopWords) []string {
	text = strings.ToLower(text)
	tokens := make([]string, 0, len(text)/6)

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		start = -1
		if utf8.RuneCountInString(word) < 2 || stop.Contains(word) {
			return
		}
		tokens = append(tokens, word)
	}

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

// isWordRune matches the characters of a Unicode \w class.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
