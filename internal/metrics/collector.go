// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hit kinds reported on the cache hit counter.
const (
	HitExact          = "exact"
	HitFuzzy          = "fuzzy"
	HitCrossNamespace = "cross_namespace"
)

// Collector aggregates the module's prometheus metrics. Each Collector owns
// its registry so independent instances never collide.
type Collector struct {
	registry *prometheus.Registry

	cacheHits       *prometheus.CounterVec
	cacheMisses     prometheus.Counter
	guardRejections prometheus.Counter
	cacheEntries    prometheus.GaugeFunc

	generationDuration prometheus.Histogram
	generationFailures prometheus.Counter

	queueDepth       prometheus.GaugeFunc
	recordsPersisted prometheus.Counter
	recordsAbandoned prometheus.Counter
	appendRetries    prometheus.Counter
}

// NewCollector creates a Collector. cacheSize and queueDepth are sampled on
// scrape; pass nil to pin the gauge to zero.
func NewCollector(namespace string, cacheSize, queueDepth func() int) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{registry: registry}

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total cache hits by kind",
		},
		[]string{"kind"},
	)

	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total cache misses",
	})

	c.guardRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_rejections_total",
		Help:      "Similarity matches rejected for brand inconsistency",
	})

	c.cacheEntries = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Entries held in the in-memory cache, expired included",
	}, gaugeFn(cacheSize))

	c.generationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "External generation call duration in seconds",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
	})

	c.generationFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_failures_total",
		Help:      "Generation streams that terminated with an error",
	})

	c.queueDepth = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "persistence_queue_depth",
		Help:      "Records waiting in the persistence queue",
	}, gaugeFn(queueDepth))

	c.recordsPersisted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_persisted_total",
		Help:      "Records durably written by the persistence writer",
	})

	c.recordsAbandoned = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_abandoned_total",
		Help:      "Records dropped at shutdown or on a full queue",
	})

	c.appendRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "append_retries_total",
		Help:      "Durable append attempts that failed and were retried",
	})

	return c
}

// Registry exposes the collector's registry for the metrics handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordHit counts a cache hit of the given kind.
func (c *Collector) RecordHit(kind string) { c.cacheHits.WithLabelValues(kind).Inc() }

// RecordMiss counts a cache miss.
func (c *Collector) RecordMiss() { c.cacheMisses.Inc() }

// RecordGuardRejection counts a guard rejection.
func (c *Collector) RecordGuardRejection() { c.guardRejections.Inc() }

// RecordGeneration observes one completed generation call.
func (c *Collector) RecordGeneration(d time.Duration, failed bool) {
	c.generationDuration.Observe(d.Seconds())
	if failed {
		c.generationFailures.Inc()
	}
}

// RecordPersisted counts a durably written record.
func (c *Collector) RecordPersisted() { c.recordsPersisted.Inc() }

// RecordAbandoned counts records lost at shutdown or on a full queue.
func (c *Collector) RecordAbandoned(n int) { c.recordsAbandoned.Add(float64(n)) }

// RecordAppendRetry counts a failed append attempt.
func (c *Collector) RecordAppendRetry() { c.appendRetries.Inc() }

func gaugeFn(fn func() int) func() float64 {
	return func() float64 {
		if fn == nil {
			return 0
		}
		return float64(fn())
	}
}
