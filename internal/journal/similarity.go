package journal

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`\W+`)

// Tokenize lowercases s and splits it on non-word characters, returning the
// distinct tokens.
func Tokenize(s string) map[string]struct{} {
	normalized := strings.ToLower(strings.Join(strings.Fields(s), " "))
	tokens := make(map[string]struct{})
	for _, t := range nonWord.Split(normalized, -1) {
		if t != "" {
			tokens[t] = struct{}{}
		}
	}
	return tokens
}

// Similarity is the Jaccard index of the token sets of a and b. Two texts
// without any tokens are considered identical.
func Similarity(a, b string) float64 {
	setA, setB := Tokenize(a), Tokenize(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
