// Package cache implements the approximate-match answer cache: a namespaced
// in-memory store with similarity lookup, lazy TTL expiry, a guarded
// cross-namespace fallback, and an optional redis-backed exact-match layer.
package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is a single cached (question, answer) record. Entries are immutable
// after insertion; only their visibility changes as they age past the TTL.
type Entry struct {
	Question  string
	Answer    []byte
	CreatedAt time.Time
}

// Match is a successful similarity lookup.
type Match struct {
	Answer          []byte
	MatchedQuestion string
	NamespaceID     string
	Similarity      float64
	CrossNamespace  bool
}

// StoreConfig configures the fuzzy store.
type StoreConfig struct {
	// Threshold is the minimum similarity ratio for a hit.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// TTL is the age past which an entry is treated as expired. Expiry is
	// enforced at read time; entries are never actively removed.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// DefaultStoreConfig returns the default fuzzy store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Threshold: 0.8,
		TTL:       time.Hour,
	}
}

type namespaceKey struct {
	userID      string
	namespaceID string
}

// FuzzyStore is a namespaced, append-only in-memory store of question/answer
// records with similarity lookup. It is safe for concurrent use: lookups take
// a read lock, stores take the write lock.
type FuzzyStore struct {
	mu      sync.RWMutex
	buckets map[namespaceKey][]Entry
	// order records each user's namespaces in first-store order so the
	// cross-namespace scan is deterministic.
	order  map[string][]string
	config StoreConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewFuzzyStore creates a FuzzyStore.
func NewFuzzyStore(config StoreConfig, logger *zap.Logger) *FuzzyStore {
	if config.Threshold <= 0 {
		config.Threshold = DefaultStoreConfig().Threshold
	}
	if config.TTL <= 0 {
		config.TTL = DefaultStoreConfig().TTL
	}
	return &FuzzyStore{
		buckets: make(map[namespaceKey][]Entry),
		order:   make(map[string][]string),
		config:  config,
		logger:  logger.With(zap.String("component", "fuzzy_store")),
		now:     time.Now,
	}
}

// Store appends a record to the user's namespace bucket, creating the bucket
// lazily on first store. The answer bytes are copied; the entry is never
// mutated afterwards. Duplicate stores coexist and both remain matchable.
func (s *FuzzyStore) Store(userID, namespaceID, question string, answer []byte) {
	entry := Entry{
		Question:  question,
		Answer:    append([]byte(nil), answer...),
		CreatedAt: s.now(),
	}

	key := namespaceKey{userID: userID, namespaceID: namespaceID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[key]; !ok {
		s.order[userID] = append(s.order[userID], namespaceID)
	}
	s.buckets[key] = append(s.buckets[key], entry)
}

// Lookup scans the user's target namespace for the live entry most similar to
// the query. When no entry clears the threshold and allowCrossNamespace is
// set, the scan widens to all of the user's other namespaces and the single
// best hit among them wins. Ties are broken by earliest insertion, and across
// namespaces by first-store order.
func (s *FuzzyStore) Lookup(userID, namespaceID, query string, allowCrossNamespace bool) (Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()

	if m, ok := s.scan(userID, namespaceID, query, now); ok {
		return m, true
	}

	if !allowCrossNamespace {
		return Match{}, false
	}

	var best Match
	found := false
	for _, other := range s.order[userID] {
		if other == namespaceID {
			continue
		}
		if m, ok := s.scan(userID, other, query, now); ok && m.Similarity > best.Similarity {
			best = m
			found = true
		}
	}
	if !found {
		return Match{}, false
	}

	best.CrossNamespace = true
	s.logger.Info("cross-namespace cache hit",
		zap.String("user_id", userID),
		zap.String("requested_namespace", namespaceID),
		zap.String("matched_namespace", best.NamespaceID),
		zap.Float64("similarity", best.Similarity),
	)
	return best, true
}

// scan walks one bucket in insertion order, skipping expired entries, and
// returns the best match at or above the threshold. The best entry is only
// replaced on a strictly greater ratio, so the earliest insertion wins ties.
// The returned answer is a copy; entries stay immutable. Callers must hold at
// least the read lock.
func (s *FuzzyStore) scan(userID, namespaceID, query string, now time.Time) (Match, bool) {
	key := namespaceKey{userID: userID, namespaceID: namespaceID}

	best := Match{NamespaceID: namespaceID}
	found := false
	for i := range s.buckets[key] {
		e := &s.buckets[key][i]
		if now.Sub(e.CreatedAt) >= s.config.TTL {
			continue
		}
		ratio := Similarity(query, e.Question)
		if ratio >= s.config.Threshold && ratio > best.Similarity {
			best.Answer = e.Answer
			best.MatchedQuestion = e.Question
			best.Similarity = ratio
			found = true
		}
	}
	if !found {
		return Match{}, false
	}
	best.Answer = append([]byte(nil), best.Answer...)
	return best, true
}

// Size returns the total number of entries across all buckets, including
// entries already past their TTL.
func (s *FuzzyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, bucket := range s.buckets {
		total += len(bucket)
	}
	return total
}
