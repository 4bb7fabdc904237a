// Package normalize turns raw posting fields into canonical attributes.
// Every extractor is a pure function over immutable alias tables loaded
// once at startup; failure is a NoMatch outcome, never an error.
package normalize

import (
	"strings"
	"unicode"
)

// CleanText lower-cases, strips control runes and collapses whitespace.
func CleanText(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits cleaned text on non-alphanumeric runes.
func Tokenize(text string) []string {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil
	}

	parts := strings.FieldsFunc(cleaned, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

func TokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// TokenSetRatio is the Jaccard similarity of the two token sets. Used
// for fuzzy title comparison at the composite fingerprint layer.
func TokenSetRatio(left, right string) float64 {
	leftSet := TokenSet(left)
	rightSet := TokenSet(right)
	if len(leftSet) == 0 || len(rightSet) == 0 {
		return 0
	}

	intersection := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(leftSet) + len(rightSet) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TrigramSimilarity is the Jaccard similarity of character trigram
// sets. Used for fuzzy entity (company/location) lookup where token
// boundaries are unreliable ("Nrb" vs "Nairobi").
func TrigramSimilarity(left, right string) float64 {
	leftSet := trigramSet(left)
	rightSet := trigramSet(right)
	if len(leftSet) == 0 || len(rightSet) == 0 {
		return 0
	}

	intersection := 0
	for gram := range leftSet {
		if _, ok := rightSet[gram]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(leftSet) + len(rightSet) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func trigramSet(text string) map[string]struct{} {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil
	}

	runes := []rune(cleaned)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}

	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// CountTokens counts whitespace-separated fields.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(strings.Fields(text))
}
