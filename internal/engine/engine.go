// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine runs the citation pipeline over a text: extract, look up
// each citation in the cache or resolve it, format, rewrite the text, and
// collect a bibliography.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/citelink/internal/cache"
	"github.com/pdiddy/citelink/internal/extract"
	"github.com/pdiddy/citelink/internal/format"
	"github.com/pdiddy/citelink/internal/observability"
	"github.com/pdiddy/citelink/internal/resolve"
	"github.com/pdiddy/citelink/pkg/types"
)

// SourceCache marks resolutions served from the cache.
const SourceCache = "cache"

// DefaultCachedConfidence is assigned to cached resolutions with a URL.
const DefaultCachedConfidence = 0.95

// Resolver resolves one author-year pair. *resolve.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, authors string, year int) types.ResolvedCitation
}

// Result is the outcome of processing one text.
type Result struct {
	RunID        string                    `json:"run_id"`
	Text         string                    `json:"text"`
	Citations    []types.Citation          `json:"citations"`
	Formatted    []types.FormattedCitation `json:"formatted"`
	Bibliography []string                  `json:"bibliography"`
}

// Resolved returns how many citations passed the formatter's gate.
func (r Result) Resolved() int {
	n := 0
	for _, fc := range r.Formatted {
		if fc.WasResolved {
			n++
		}
	}
	return n
}

// Engine wires an extractor, resolver, formatter and optional cache. An
// Engine is meant to be owned by one task at a time, like its cache.
type Engine struct {
	extractor        *extract.Extractor
	resolver         Resolver
	formatter        *format.Formatter
	cache            *cache.Cache
	metrics          *observability.Metrics
	log              zerolog.Logger
	cachedConfidence float64
	unresolved       float64
	heading          string
	bibliography     bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache consults and fills c. Without it every citation is resolved.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records extraction, cache and linking counts in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCachedConfidence overrides DefaultCachedConfidence.
func WithCachedConfidence(conf float64) Option {
	return func(e *Engine) { e.cachedConfidence = conf }
}

// WithUnresolvedConfidence sets the confidence reported for citations the
// engine gives up on without a resolver answer. It should match the
// resolver's own unresolved confidence.
func WithUnresolvedConfidence(conf float64) Option {
	return func(e *Engine) { e.unresolved = conf }
}

// WithBibliography controls whether ProcessArticle appends a bibliography
// section, and under which heading.
func WithBibliography(enabled bool, heading string) Option {
	return func(e *Engine) {
		e.bibliography = enabled
		if heading != "" {
			e.heading = heading
		}
	}
}

// New returns an Engine.
func New(x *extract.Extractor, r Resolver, f *format.Formatter, opts ...Option) *Engine {
	e := &Engine{
		extractor:        x,
		resolver:         r,
		formatter:        f,
		log:              zerolog.Nop(),
		cachedConfidence: DefaultCachedConfidence,
		unresolved:       types.DefaultResolverConfig().UnresolvedConfidence,
		heading:          types.DefaultConfig().Engine.BibliographyHeading,
		bibliography:     true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process links the citations in text. It never fails: citations that
// cannot be resolved are left as plain text. Citations sharing an author
// string and year are looked up once per call.
func (e *Engine) Process(ctx context.Context, text string) Result {
	runID := uuid.NewString()
	log := observability.WithRunContext(e.log, runID)

	citations := e.extractor.Extract(text)
	for _, c := range citations {
		e.metrics.ObserveExtracted(c.Pattern)
	}
	log.Debug().Int("citations", len(citations)).Msg("citations extracted")

	res := Result{RunID: runID, Text: text, Citations: citations}
	if len(citations) == 0 {
		e.metrics.ObserveArticle(0)
		return res
	}

	memo := make(map[string]types.ResolvedCitation)
	res.Formatted = make([]types.FormattedCitation, 0, len(citations))
	for _, c := range citations {
		resolved, ok := memo[c.Key()]
		if !ok {
			resolved = e.lookup(ctx, log, c)
			memo[c.Key()] = resolved
		}
		res.Formatted = append(res.Formatted, e.formatter.Format(c, resolved))
	}

	res.Text = e.formatter.ApplyToText(text, res.Formatted)
	res.Bibliography = e.formatter.BuildBibliography(res.Formatted)

	linked := res.Resolved()
	e.metrics.ObserveArticle(linked)
	log.Info().
		Int("citations", len(citations)).
		Int("resolved", linked).
		Msg("citations processed")
	return res
}

// Lookup resolves a single author-year pair through the cache, exactly as
// Process does for each extracted citation.
func (e *Engine) Lookup(ctx context.Context, authors string, year int) types.ResolvedCitation {
	return e.lookup(ctx, e.log, types.Citation{Authors: authors, Year: year})
}

// lookup serves a citation from the cache when a fresh entry carries a
// URL. Otherwise it resolves the citation and records the outcome,
// including misses. An entry without a URL is re-resolved on every lookup.
// Nothing is cached once ctx is done.
func (e *Engine) lookup(ctx context.Context, log zerolog.Logger, c types.Citation) types.ResolvedCitation {
	if e.cache == nil {
		e.metrics.ObserveCache(observability.CacheSkipped)
		return e.resolver.Resolve(ctx, c.Authors, c.Year)
	}

	entry, ok := e.cache.Get(c.Authors, c.Year)
	switch {
	case ok && entry.URL != "":
		e.metrics.ObserveCache(observability.CacheHit)
		return e.fromCache(entry)
	case ok:
		e.metrics.ObserveCache(observability.CacheRefreshed)
	default:
		e.metrics.ObserveCache(observability.CacheMiss)
	}

	if ctx.Err() != nil {
		return types.Unresolved(e.unresolved)
	}
	resolved := e.resolver.Resolve(ctx, c.Authors, c.Year)
	if ctx.Err() != nil {
		log.Debug().Str("authors", c.Authors).Int("year", c.Year).Msg("run cancelled, result not cached")
		return resolved
	}
	e.cache.Put(c.Authors, c.Year, resolved.DOI, resolved.URL)
	return resolved
}

func (e *Engine) fromCache(entry types.CacheEntry) types.ResolvedCitation {
	r := resolve.FromURL(entry.URL)
	if entry.DOI != "" {
		r.DOI = entry.DOI
	}
	r.Confidence = e.cachedConfidence
	r.Source = SourceCache
	return r
}
