package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("  Broken   LOCKERS, broken\tfountains!  west-wing ")
	assert.Equal(t, map[string]struct{}{
		"broken":    {},
		"lockers":   {},
		"fountains": {},
		"west":      {},
		"wing":      {},
	}, got)

	assert.Empty(t, Tokenize(" \n\t ...!! "))
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "both empty", a: "", b: "", want: 1},
		{name: "punctuation only", a: "...", b: "!!", want: 1},
		{name: "one empty", a: "lockers", b: "", want: 0},
		{name: "identical", a: "broken lockers", b: "broken lockers", want: 1},
		{name: "case and spacing ignored", a: "Broken  Lockers.", b: "broken lockers", want: 1},
		{name: "multiset collapses", a: "lockers lockers lockers", b: "lockers", want: 1},
		{name: "half overlap", a: "a b", b: "b c", want: 1.0 / 3.0},
		{name: "disjoint", a: "a b", b: "c d", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"Recent reports indicate lockers", "lockers reports"},
		{"", "something"},
		{"one two three four", "four five"},
	}
	for _, p := range pairs {
		assert.InDelta(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), 1e-12)
		if len(Tokenize(p[0])) > 0 {
			assert.Equal(t, 1.0, Similarity(p[0], p[0]))
		}
	}
}
