// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve looks up author-year citations in CrossRef and arXiv.
// A resolution walks a fixed fallback chain and never returns an error:
// failures of any kind fall through to the next strategy, and exhausting
// the chain yields an unresolved record.
package resolve

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/citelink/internal/httputil"
	"github.com/pdiddy/citelink/internal/observability"
	"github.com/pdiddy/citelink/pkg/types"
)

// Strategy names, in the order they are attempted.
const (
	StrategyCrossRef            = "crossref"
	StrategyCrossRefFirstAuthor = "crossref_first_author"
	StrategyArxiv               = "arxiv"
	StrategyArxivFirstAuthor    = "arxiv_first_author"
)

// firstAuthorRe matches the leading capitalized word of an author string.
var firstAuthorRe = regexp.MustCompile(`^[A-Z][a-z]+`)

// lookup is a single bibliographic API.
type lookup interface {
	api() string
	lookup(ctx context.Context, authors string, year int) (types.ResolvedCitation, bool, error)
}

type strategy struct {
	name    string
	source  lookup
	authors string
}

// Resolver resolves citations against CrossRef and arXiv. A Resolver is
// meant for one logical task at a time; its rate limiters are shared by
// every call made through it.
type Resolver struct {
	cfg      types.ResolverConfig
	client   *http.Client
	crossref lookup
	arxiv    lookup
	log      zerolog.Logger
	metrics  *observability.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the default client (which uses cfg.Timeout and
// follows redirects).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithLogger sets the logger used for strategy failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithMetrics records strategy attempts in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New returns a Resolver. Empty endpoint, timeout and user-agent fields
// fall back to DefaultResolverConfig values; confidences are used as given.
func New(cfg types.ResolverConfig, opts ...Option) *Resolver {
	applyDefaults(&cfg)

	r := &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	retry := httputil.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay}
	r.crossref = &crossrefLookup{client: r.client, lim: httputil.NewLimiter(cfg.CrossRefRate, 1), retry: retry, cfg: cfg}
	r.arxiv = &arxivLookup{client: r.client, lim: httputil.NewLimiter(cfg.ArxivRate, 1), retry: retry, cfg: cfg}
	return r
}

func applyDefaults(cfg *types.ResolverConfig) {
	def := types.DefaultResolverConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.CrossRefURL == "" {
		cfg.CrossRefURL = def.CrossRefURL
	}
	if cfg.ArxivURL == "" {
		cfg.ArxivURL = def.ArxivURL
	}
}

// Config returns the effective configuration.
func (r *Resolver) Config() types.ResolverConfig {
	return r.cfg
}

// Resolve looks up a citation, stopping at the first strategy that finds
// it: CrossRef with the full author string, CrossRef with the first author
// only, arXiv with the full string, arXiv with the first author only. The
// first-author steps are skipped when they would repeat the full query.
func (r *Resolver) Resolve(ctx context.Context, authors string, year int) types.ResolvedCitation {
	log := observability.WithCitationContext(r.log, authors, year)

	for _, s := range r.strategies(authors) {
		if res, ok := r.attempt(ctx, log, s, year); ok {
			log.Debug().Str("strategy", s.name).Str("url", res.URL).Msg("citation resolved")
			return res
		}
	}

	log.Debug().Msg("citation unresolved")
	return types.Unresolved(r.cfg.UnresolvedConfidence)
}

func (r *Resolver) strategies(authors string) []strategy {
	first := FirstAuthor(authors)
	useFirst := first != "" && first != authors

	out := []strategy{{name: StrategyCrossRef, source: r.crossref, authors: authors}}
	if useFirst {
		out = append(out, strategy{name: StrategyCrossRefFirstAuthor, source: r.crossref, authors: first})
	}
	out = append(out, strategy{name: StrategyArxiv, source: r.arxiv, authors: authors})
	if useFirst {
		out = append(out, strategy{name: StrategyArxivFirstAuthor, source: r.arxiv, authors: first})
	}
	return out
}

// attempt runs one strategy under its own timeout. Errors are logged and
// reported as a miss.
func (r *Resolver) attempt(ctx context.Context, log zerolog.Logger, s strategy, year int) (types.ResolvedCitation, bool) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	res, found, err := s.source.lookup(callCtx, s.authors, year)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		r.metrics.ObserveAttempt(s.name, s.source.api(), observability.OutcomeError, elapsed)
		log.Warn().Err(err).Str("strategy", s.name).Msg("lookup failed")
		return types.ResolvedCitation{}, false
	case !found:
		r.metrics.ObserveAttempt(s.name, s.source.api(), observability.OutcomeNotFound, elapsed)
		log.Debug().Str("strategy", s.name).Msg("no match")
		return types.ResolvedCitation{}, false
	default:
		r.metrics.ObserveAttempt(s.name, s.source.api(), observability.OutcomeFound, elapsed)
		return res, true
	}
}

// FirstAuthor returns the leading capitalized word of authors ("Smith"
// for "Smith et al." or "Smith & Jones"), or "" when there is none.
func FirstAuthor(authors string) string {
	return firstAuthorRe.FindString(authors)
}
