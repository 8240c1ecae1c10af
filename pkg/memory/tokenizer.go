package memory

import (
	"strings"
	"unicode"
)

// Tokenize normalizes text into an ordered sequence of terms: lowercase,
// split on any run of non-alphanumeric characters, empty tokens dropped.
// Indexing and query parsing must use the same tokenizer for BM25 scores
// to be meaningful.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	tokens := make([]string, 0, len(text)/4)
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}
