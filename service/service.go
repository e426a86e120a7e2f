// Package service coordinates the full answer path for a request: normalize
// the query, route it to an assistant namespace, consult the caches, and on a
// miss drive generation, forward the stream, then store and enqueue the
// finished answer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/motorline/assistcache/cache"
	"github.com/motorline/assistcache/internal/metrics"
	"github.com/motorline/assistcache/llm"
	"github.com/motorline/assistcache/normalize"
	"github.com/motorline/assistcache/persistence"
	"github.com/motorline/assistcache/router"
)

var (
	// ErrNoAssistant is returned when a user has never mentioned a trigger
	// keyword, so no namespace can serve the query.
	ErrNoAssistant = errors.New("no assistant selected for user")

	// ErrClosed is returned by Handle after Shutdown.
	ErrClosed = errors.New("service closed")
)

// Deps collects the collaborators a Service coordinates. Exact is optional;
// everything else must be non-nil.
type Deps struct {
	Normalizer *normalize.Normalizer
	Router     *router.Router
	Store      *cache.FuzzyStore
	Guard      *cache.Guard
	Exact      *cache.ExactCache
	Generator  llm.Generator
	Queue      *persistence.Queue
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

// Config holds the service-level knobs.
type Config struct {
	// CrossNamespaceFallback enables the second lookup pass over the
	// user's other namespaces. It never applies to a query that pinned a
	// namespace by keyword.
	CrossNamespaceFallback bool `yaml:"cross_namespace_fallback" json:"cross_namespace_fallback"`
}

// Service is the explicit request coordinator. It is constructed once and
// passed to every handler; there is no ambient global state.
type Service struct {
	deps   Deps
	config Config
	logger *zap.Logger
	closed atomic.Bool
}

// New creates a Service. Call Init before serving requests.
func New(deps Deps, config Config) *Service {
	return &Service{
		deps:   deps,
		config: config,
		logger: deps.Logger.With(zap.String("component", "service")),
	}
}

// Init starts the background persistence writer.
func (s *Service) Init() {
	s.deps.Queue.Start()
	s.logger.Info("service initialized",
		zap.Bool("cross_namespace_fallback", s.config.CrossNamespaceFallback),
	)
}

// Shutdown stops accepting requests and joins the persistence writer within
// its configured timeout. Records still queued past the timeout are abandoned
// and logged by the queue.
func (s *Service) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	return s.deps.Queue.Shutdown(ctx)
}

// Handle answers one query. A cache hit yields a single chunk; a miss streams
// the generated answer chunk by chunk while accumulating it, and only after a
// clean stream end does the answer reach the cache and the persistence queue.
// A failed generation is forwarded as a terminal error chunk and is never
// stored.
func (s *Service) Handle(ctx context.Context, userID, rawQuery string) (<-chan llm.Chunk, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	normalized := s.deps.Normalizer.Normalize(rawQuery)

	decision := s.deps.Router.Route(userID, normalized)
	if !decision.Selected {
		return nil, ErrNoAssistant
	}
	namespaceID := decision.NamespaceID

	if s.deps.Exact != nil {
		if answer, ok := s.deps.Exact.Get(ctx, userID, namespaceID, normalized); ok {
			s.deps.Metrics.RecordHit(metrics.HitExact)
			return singleChunk(answer), nil
		}
	}

	allowCross := s.config.CrossNamespaceFallback && !decision.Pinned
	if match, ok := s.deps.Store.Lookup(userID, namespaceID, normalized, allowCross); ok {
		if s.deps.Guard.Accepts(normalized, match.MatchedQuestion) {
			s.noteHit(userID, namespaceID, match)
			return singleChunk(match.Answer), nil
		}
		s.deps.Metrics.RecordGuardRejection()
	}

	s.deps.Metrics.RecordMiss()
	return s.generate(ctx, userID, namespaceID, rawQuery, normalized)
}

// noteHit records hit metrics and feeds routing reassignment signals back to
// the router.
func (s *Service) noteHit(userID, namespaceID string, match cache.Match) {
	if match.CrossNamespace {
		s.deps.Metrics.RecordHit(metrics.HitCrossNamespace)
		s.deps.Router.Reassign(userID, match.NamespaceID)
		return
	}
	s.deps.Metrics.RecordHit(metrics.HitFuzzy)

	if brand, ok := s.deps.Guard.Reassignment(match.Answer); ok {
		if target, ok := s.deps.Router.NamespaceForKeyword(brand); ok && target != namespaceID {
			s.deps.Router.Reassign(userID, target)
		}
		return
	}

	// Several brands mentioned: no reassignment, but keep the candidates so
	// the next keyword-less query can resolve them.
	var candidates []string
	for _, b := range s.deps.Guard.BrandTokens(string(match.Answer)) {
		if target, ok := s.deps.Router.NamespaceForKeyword(b); ok && target != namespaceID {
			candidates = append(candidates, target)
		}
	}
	if len(candidates) > 0 {
		s.deps.Router.NotePending(userID, candidates)
	}
}

// generate drives the external generation call, forwarding chunks to the
// caller while accumulating the full answer. The generator stream is always
// drained to the end, even when the caller stops reading mid-answer, so a
// completed generation still reaches the cache and the persistence queue.
// Store and enqueue run before the returned channel closes.
func (s *Service) generate(ctx context.Context, userID, namespaceID, rawQuery, normalized string) (<-chan llm.Chunk, error) {
	start := time.Now()

	stream, err := s.deps.Generator.Generate(ctx, namespaceID, rawQuery)
	if err != nil {
		s.deps.Metrics.RecordGeneration(time.Since(start), true)
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		var answer []byte
		abandoned := false
		for chunk := range stream {
			if chunk.Err != nil {
				s.deps.Metrics.RecordGeneration(time.Since(start), true)
				s.logger.Warn("generation failed mid-stream",
					zap.String("user_id", userID),
					zap.String("namespace_id", namespaceID),
					zap.Error(chunk.Err),
				)
				if !abandoned {
					select {
					case out <- chunk:
					case <-ctx.Done():
					}
				}
				return
			}
			answer = append(answer, chunk.Data...)
			if abandoned {
				continue
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				abandoned = true
				s.logger.Info("caller went away mid-generation, draining to cache",
					zap.String("user_id", userID),
					zap.String("namespace_id", namespaceID),
				)
			}
		}

		s.deps.Metrics.RecordGeneration(time.Since(start), false)
		s.finish(context.WithoutCancel(ctx), userID, namespaceID, rawQuery, normalized, answer)
	}()
	return out, nil
}

// finish commits a completed answer: fuzzy store, optional exact layer, and
// the persistence queue. Queue refusal is a bounded, logged loss; the caller
// already has the answer.
func (s *Service) finish(ctx context.Context, userID, namespaceID, rawQuery, normalized string, answer []byte) {
	s.deps.Store.Store(userID, namespaceID, normalized, answer)
	if s.deps.Exact != nil {
		s.deps.Exact.Set(ctx, userID, namespaceID, normalized, answer)
	}

	rec := persistence.NewRecord(userID, namespaceID, rawQuery, answer)
	if err := s.deps.Queue.Enqueue(rec); err != nil {
		s.logger.Warn("persistence enqueue refused",
			zap.String("record_id", rec.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// singleChunk wraps cached answer bytes as an already-complete stream.
func singleChunk(answer []byte) <-chan llm.Chunk {
	out := make(chan llm.Chunk, 1)
	out <- llm.Chunk{Data: answer}
	close(out)
	return out
}
