package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var testBrands = []string{"Kamiq", "Fabia", "Scala"}

func TestGuardAccepts(t *testing.T) {
	g := NewGuard(testBrands, zap.NewNop())

	tests := []struct {
		name            string
		query           string
		matchedQuestion string
		want            bool
	}{
		{
			name:            "same brand",
			query:           "kamiq has feature x?",
			matchedQuestion: "kamiq has feature x",
			want:            true,
		},
		{
			name:            "different brand rejected",
			query:           "does scala have feature x?",
			matchedQuestion: "kamiq has feature x",
			want:            false,
		},
		{
			name:            "no brand in query passes",
			query:           "what colors are available?",
			matchedQuestion: "kamiq has feature x",
			want:            true,
		},
		{
			name:            "query brands subset of matched",
			query:           "kamiq sunroof",
			matchedQuestion: "kamiq vs fabia sunroof comparison",
			want:            true,
		},
		{
			name:            "query asks beyond matched coverage",
			query:           "kamiq vs scala sunroof",
			matchedQuestion: "kamiq sunroof",
			want:            false,
		},
		{
			name:            "case insensitive",
			query:           "KAMIQ features",
			matchedQuestion: "Kamiq features",
			want:            true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Accepts(tt.query, tt.matchedQuestion))
		})
	}
}

func TestGuardReassignment(t *testing.T) {
	g := NewGuard(testBrands, zap.NewNop())

	brand, ok := g.Reassignment([]byte("The Kamiq comes with a panoramic roof."))
	assert.True(t, ok)
	assert.Equal(t, "kamiq", brand)

	// More than one brand mentioned: no reassignment.
	_, ok = g.Reassignment([]byte("Both the Kamiq and the Scala offer it."))
	assert.False(t, ok)

	// No brand mentioned: no reassignment.
	_, ok = g.Reassignment([]byte("Yes, that feature is standard."))
	assert.False(t, ok)
}

func TestGuardBrandTokens(t *testing.T) {
	g := NewGuard(testBrands, zap.NewNop())

	assert.Equal(t, []string{"kamiq", "scala"}, g.BrandTokens("Scala or Kamiq?"))
	assert.Empty(t, g.BrandTokens("nothing relevant"))
}
