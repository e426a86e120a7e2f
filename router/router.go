// Package router maps normalized user queries to assistant namespaces. The
// mapping is keyword-driven and sticky per user: an explicit brand mention
// overwrites the user's current namespace, and later queries without one keep
// using it.
package router

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Assistant binds a namespace to the trigger keywords that select it. The
// table is loaded once at startup and never mutated at runtime; scan order is
// the declaration order, so routing is deterministic.
type Assistant struct {
	NamespaceID     string   `yaml:"namespace_id" json:"namespace_id"`
	TriggerKeywords []string `yaml:"trigger_keywords" json:"trigger_keywords"`
}

// Decision is the outcome of routing a single query.
type Decision struct {
	// NamespaceID is the selected namespace. Empty when Selected is false.
	NamespaceID string

	// Selected is false when the user has never triggered a namespace.
	// Callers must treat this as a distinct outcome, not an error.
	Selected bool

	// Pinned reports that this query itself contained a trigger keyword.
	// The cross-namespace fallback is disabled for pinned queries.
	Pinned bool
}

// userState is the transient per-user routing state. Never persisted.
type userState struct {
	currentNamespaceID string
	// pendingSelections holds namespace candidates from an ambiguous
	// reassignment signal (an answer mentioning several brands). The next
	// keyword-less query resolves to the first candidate; an explicit
	// keyword discards them.
	pendingSelections []string
}

// Router routes queries to assistant namespaces.
type Router struct {
	assistants []Assistant

	mu     sync.Mutex
	states map[string]*userState
	logger *zap.Logger
}

// New creates a Router over an ordered assistant table. Keywords are matched
// case-insensitively as substrings of the normalized query.
func New(assistants []Assistant, logger *zap.Logger) *Router {
	table := make([]Assistant, 0, len(assistants))
	for _, a := range assistants {
		keywords := make([]string, 0, len(a.TriggerKeywords))
		for _, k := range a.TriggerKeywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		table = append(table, Assistant{NamespaceID: a.NamespaceID, TriggerKeywords: keywords})
	}
	return &Router{
		assistants: table,
		states:     make(map[string]*userState),
		logger:     logger.With(zap.String("component", "router")),
	}
}

// Route resolves the namespace for a query. The first assistant whose keyword
// set intersects the query wins and becomes the user's sticky namespace; with
// no keyword present, pending candidates from an ambiguous continuity signal
// resolve first, then the previous namespace is returned.
func (r *Router) Route(userID, normalizedQuery string) Decision {
	query := strings.ToLower(normalizedQuery)

	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(userID)

	for _, a := range r.assistants {
		if matchesAny(query, a.TriggerKeywords) {
			if state.currentNamespaceID != a.NamespaceID {
				r.logger.Debug("namespace switched by keyword",
					zap.String("user_id", userID),
					zap.String("namespace_id", a.NamespaceID),
				)
			}
			state.currentNamespaceID = a.NamespaceID
			state.pendingSelections = nil
			return Decision{NamespaceID: a.NamespaceID, Selected: true, Pinned: true}
		}
	}

	if len(state.pendingSelections) > 0 {
		namespaceID := state.pendingSelections[0]
		state.pendingSelections = nil
		state.currentNamespaceID = namespaceID
		r.logger.Debug("pending namespace candidate resolved",
			zap.String("user_id", userID),
			zap.String("namespace_id", namespaceID),
		)
		return Decision{NamespaceID: namespaceID, Selected: true}
	}

	if state.currentNamespaceID == "" {
		return Decision{}
	}
	return Decision{NamespaceID: state.currentNamespaceID, Selected: true}
}

// Reassign pins the user's current namespace, typically from the guard's
// continuity signal or a cross-namespace cache hit.
func (r *Router) Reassign(userID, namespaceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.state(userID)
	if state.currentNamespaceID == namespaceID {
		return
	}
	state.currentNamespaceID = namespaceID
	state.pendingSelections = nil
	r.logger.Info("namespace reassigned",
		zap.String("user_id", userID),
		zap.String("namespace_id", namespaceID),
	)
}

// NotePending records namespace candidates from an ambiguous continuity
// signal without changing the current namespace.
func (r *Router) NotePending(userID string, namespaceIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state(userID).pendingSelections = append([]string(nil), namespaceIDs...)
}

// NamespaceForKeyword maps a trigger keyword back to its namespace.
func (r *Router) NamespaceForKeyword(keyword string) (string, bool) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	for _, a := range r.assistants {
		for _, k := range a.TriggerKeywords {
			if k == keyword {
				return a.NamespaceID, true
			}
		}
	}
	return "", false
}

// state returns the user's state, creating it lazily. Callers must hold the
// lock.
func (r *Router) state(userID string) *userState {
	s, ok := r.states[userID]
	if !ok {
		s = &userState{}
		r.states[userID] = s
	}
	return s
}

func matchesAny(query string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(query, k) {
			return true
		}
	}
	return false
}
