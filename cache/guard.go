package cache

import (
	"strings"

	"go.uber.org/zap"
)

// Guard rejects similarity matches whose cached answer covers a different
// product brand than the one the incoming query asks about. A rejection is
// not an error; it falls back to full regeneration.
type Guard struct {
	brands []string
	logger *zap.Logger
}

// NewGuard creates a Guard over the fixed brand vocabulary. Brand terms are
// matched case-insensitively as substrings, the same way the router matches
// its trigger keywords.
func NewGuard(brands []string, logger *zap.Logger) *Guard {
	lowered := make([]string, 0, len(brands))
	for _, b := range brands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			lowered = append(lowered, b)
		}
	}
	return &Guard{
		brands: lowered,
		logger: logger.With(zap.String("component", "consistency_guard")),
	}
}

// Accepts reports whether a similarity match between query and
// matchedQuestion is brand-consistent: if the query mentions any brands, they
// must all be covered by the matched question. A query with no brand mentions
// always passes.
func (g *Guard) Accepts(query, matchedQuestion string) bool {
	queryBrands := g.BrandTokens(query)
	if len(queryBrands) == 0 {
		return true
	}

	matched := g.BrandTokens(matchedQuestion)
	for _, b := range queryBrands {
		if !contains(matched, b) {
			g.logger.Info("rejecting brand-inconsistent match",
				zap.String("query_brand", b),
				zap.Strings("matched_brands", matched),
			)
			return false
		}
	}
	return true
}

// Reassignment inspects a cached answer and, when the answer text mentions
// exactly one brand, returns that brand so the caller can pin the user's
// routing to it. Answers mentioning zero or several brands yield no
// reassignment.
func (g *Guard) Reassignment(answer []byte) (string, bool) {
	mentioned := g.BrandTokens(string(answer))
	if len(mentioned) != 1 {
		return "", false
	}
	return mentioned[0], true
}

// BrandTokens returns the brands mentioned in the text, in vocabulary order.
func (g *Guard) BrandTokens(text string) []string {
	lowered := strings.ToLower(text)

	var out []string
	for _, b := range g.brands {
		if strings.Contains(lowered, b) {
			out = append(out, b)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
