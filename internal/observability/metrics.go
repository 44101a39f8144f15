// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "citelink"

// Resolution outcomes recorded per strategy attempt.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Cache lookup results.
const (
	CacheHit       = "hit"
	CacheMiss      = "miss"
	CacheRefreshed = "negative_refresh"
	CacheSkipped   = "disabled"
)

// Metrics holds the engine's Prometheus collectors. All methods are safe
// to call on a nil *Metrics, which records nothing.
type Metrics struct {
	// CitationsExtracted counts citations found, labeled by pattern.
	CitationsExtracted *prometheus.CounterVec

	// ResolutionAttempts counts strategy attempts, labeled by strategy and outcome.
	ResolutionAttempts *prometheus.CounterVec

	// LookupDuration observes resolver lookup duration in seconds, labeled by
	// api. It includes rate-limit waits and 429 backoff.
	LookupDuration *prometheus.HistogramVec

	// CacheLookups counts cache lookups, labeled by result.
	CacheLookups *prometheus.CounterVec

	// CitationsLinked counts citations rewritten as links.
	CitationsLinked prometheus.Counter

	// ArticlesProcessed counts texts run through the engine.
	ArticlesProcessed prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. Use a
// fresh prometheus.NewRegistry() per test to keep tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CitationsExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_extracted_total",
			Help:      "Citations found in article text, by extraction pattern.",
		}, []string{"pattern"}),
		ResolutionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_attempts_total",
			Help:      "Resolver strategy attempts, by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		LookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of resolver lookups per API, including rate-limit waits and retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"api"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Citation cache lookups, by result.",
		}, []string{"result"}),
		CitationsLinked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_linked_total",
			Help:      "Citations rewritten as markdown links.",
		}),
		ArticlesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_processed_total",
			Help:      "Texts processed by the citation engine.",
		}),
	}
}

// ObserveExtracted records one extracted citation.
func (m *Metrics) ObserveExtracted(pattern string) {
	if m == nil {
		return
	}
	m.CitationsExtracted.WithLabelValues(pattern).Inc()
}

// ObserveAttempt records one resolver strategy attempt and its duration.
func (m *Metrics) ObserveAttempt(strategy, api, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionAttempts.WithLabelValues(strategy, outcome).Inc()
	m.LookupDuration.WithLabelValues(api).Observe(elapsed.Seconds())
}

// ObserveCache records one cache lookup result.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveArticle records a processed text and how many links it gained.
func (m *Metrics) ObserveArticle(linked int) {
	if m == nil {
		return
	}
	m.ArticlesProcessed.Inc()
	m.CitationsLinked.Add(float64(linked))
}
