// Package normalize canonicalizes raw user queries before they are used as
// cache keys or routed to an assistant. Normalization is deterministic and
// pure: the same input always yields the same output and unknown tokens pass
// through unchanged.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// DefaultThreshold is the minimum token similarity for a fuzzy correction.
const DefaultThreshold = 0.7

const tokenCutset = "?!.,;:\"'()"

// compound is a vocabulary term spelled as two tokens that canonically form
// a single term, e.g. "monte carlo".
type compound struct {
	first  string
	second string
	joined string
}

// Normalizer corrects near-miss spellings of a small fixed vocabulary and
// merges adjacent tokens that form a compound vocabulary term.
type Normalizer struct {
	terms     []string
	compounds []compound
	threshold float64
}

// New builds a Normalizer over the given vocabulary. Terms containing a
// space are treated as compound terms and their halves become correctable
// tokens of their own. A non-positive threshold falls back to
// DefaultThreshold.
func New(vocabulary []string, threshold float64) *Normalizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	n := &Normalizer{threshold: threshold}
	for _, term := range vocabulary {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if first, second, ok := strings.Cut(term, " "); ok {
			n.compounds = append(n.compounds, compound{first: first, second: second, joined: term})
			n.terms = append(n.terms, first, second)
			continue
		}
		n.terms = append(n.terms, term)
	}
	return n
}

// Normalize lowercases and tokenizes the query, corrects each token against
// the vocabulary, and re-joins adjacent tokens that form a compound term.
// It never fails; an empty query normalizes to the empty string.
func (n *Normalizer) Normalize(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))

	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		trimmed := strings.Trim(tok, tokenCutset)
		if trimmed == "" {
			// Pure punctuation, keep as-is so the query round-trips.
			tokens = append(tokens, tok)
			continue
		}
		start := strings.Index(tok, trimmed)
		prefix, suffix := tok[:start], tok[start+len(trimmed):]
		tokens = append(tokens, prefix+n.correct(trimmed)+suffix)
	}

	merged := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if joined, ok := n.merge(tokens[i], tokens[i+1]); ok {
				merged = append(merged, joined)
				i++
				continue
			}
		}
		merged = append(merged, tokens[i])
	}

	return strings.Join(merged, " ")
}

// correct maps a token to its closest vocabulary term when the edit-distance
// ratio clears the threshold. Exact matches short-circuit.
func (n *Normalizer) correct(token string) string {
	best := ""
	bestRatio := 0.0
	for _, term := range n.terms {
		if token == term {
			return term
		}
		if r := Ratio(token, term); r > bestRatio {
			best = term
			bestRatio = r
		}
	}
	if bestRatio >= n.threshold {
		return best
	}
	return token
}

// merge joins two already-corrected adjacent tokens when they are the two
// halves of a compound vocabulary term.
func (n *Normalizer) merge(a, b string) (string, bool) {
	for _, c := range n.compounds {
		if a == c.first && b == c.second {
			return c.joined, true
		}
	}
	return "", false
}

// Ratio returns a Levenshtein-based similarity ratio in [0,1] between two
// tokens: 1 - distance/maxLen. Identical tokens score 1, fully dissimilar
// tokens score 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dist := levenshtein(a, b)
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	return 1.0 - float64(dist)/float64(longest)
}

// levenshtein computes the edit distance between two strings using a single
// rolling row.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
