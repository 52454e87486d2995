package tokenizer

import (
	"strings"
	"unicode"
)

// Fold prepares free text for approximate matching: it lowercases the text,
// turns every run of whitespace or punctuation into a single space and trims
// the ends. Letters and digits of any script are kept.
func Fold(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Tokenize converts a string into a slice of lowercase word tokens.
// It splits on anything that is not a letter or digit.
func Tokenize(text string) []string {
	split := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(split)) // Initialize as empty slice, not nil
	tokens = append(tokens, split...)
	return tokens
}

// Vocabulary returns the distinct tokens of all texts with at least minLen
// runes, in first-seen order.
func Vocabulary(minLen int, texts ...string) []string {
	vocab := make([]string, 0)
	seen := make(map[string]struct{})

	for _, text := range texts {
		for _, token := range Tokenize(text) {
			if len([]rune(token)) < minLen {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			vocab = append(vocab, token)
		}
	}
	return vocab
}
