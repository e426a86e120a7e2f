package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocabulary = []string{"kamiq", "fabia", "scala", "premium", "elite", "monte carlo"}

func TestNormalize(t *testing.T) {
	n := New(testVocabulary, 0)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases",
			input: "Kamiq Has Feature X",
			want:  "kamiq has feature x",
		},
		{
			name:  "corrects near miss brand",
			input: "does the kamiwq have a sunroof",
			want:  "does the kamiq have a sunroof",
		},
		{
			name:  "merges compound term",
			input: "fabia monte carlo seats",
			want:  "fabia monte carlo seats",
		},
		{
			name:  "merges misspelled compound halves",
			input: "monta karlo wheels",
			want:  "monte carlo wheels",
		},
		{
			name:  "unknown tokens pass through",
			input: "zzzzzz unrelated words",
			want:  "zzzzzz unrelated words",
		},
		{
			name:  "keeps trailing punctuation",
			input: "kamiq has feature x?",
			want:  "kamiq has feature x?",
		},
		{
			name:  "keeps leading punctuation",
			input: "(kamiq) \"monte carlo\"",
			want:  "(kamiq) \"monte carlo\"",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := New(testVocabulary, 0)

	in := "Monte Karlo for the Scalla?"
	first := n.Normalize(in)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, n.Normalize(in))
	}
}

func TestNormalizeThreshold(t *testing.T) {
	n := New(testVocabulary, 0.9)

	// "kamiwq" vs "kamiq" scores below 0.9, so no correction at the
	// stricter threshold.
	assert.Equal(t, "kamiwq", n.Normalize("kamiwq"))
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"kamiq", "kamiq", 1.0, 1.0},
		{"kamiq", "", 0.0, 0.0},
		{"", "", 1.0, 1.0},
		{"kamiq", "kamiw", 0.79, 0.81},
		{"scala", "skala", 0.79, 0.81},
		{"fabia", "xyzzy", 0.0, 0.3},
	}

	for _, tt := range tests {
		r := Ratio(tt.a, tt.b)
		assert.GreaterOrEqual(t, r, tt.min, "Ratio(%q, %q)", tt.a, tt.b)
		assert.LessOrEqual(t, r, tt.max, "Ratio(%q, %q)", tt.a, tt.b)
	}
}

func TestRatioMultibyte(t *testing.T) {
	// Two of five runes differ; the extra bytes of the accented runes must
	// not skew the denominator.
	assert.InDelta(t, 0.6, Ratio("müdür", "mudur"), 1e-9)
}
