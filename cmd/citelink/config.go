// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/citelink/internal/cache"
	"github.com/pdiddy/citelink/internal/engine"
	"github.com/pdiddy/citelink/internal/extract"
	"github.com/pdiddy/citelink/internal/format"
	"github.com/pdiddy/citelink/internal/observability"
	"github.com/pdiddy/citelink/internal/resolve"
	"github.com/pdiddy/citelink/internal/secrets"
	"github.com/pdiddy/citelink/pkg/types"
)

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

// registerDefaults makes every setting visible to viper, which is what
// lets CITELINK_* environment variables override keys never set in a file.
func registerDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("extractor.primary_confidence", d.Extractor.PrimaryConfidence)
	v.SetDefault("extractor.secondary_confidence", d.Extractor.SecondaryConfidence)
	v.SetDefault("extractor.tertiary_confidence", d.Extractor.TertiaryConfidence)

	v.SetDefault("resolver.timeout", d.Resolver.Timeout)
	v.SetDefault("resolver.user_agent", d.Resolver.UserAgent)
	v.SetDefault("resolver.crossref_url", d.Resolver.CrossRefURL)
	v.SetDefault("resolver.arxiv_url", d.Resolver.ArxivURL)
	v.SetDefault("resolver.mailto", d.Resolver.Mailto)
	v.SetDefault("resolver.crossref_rate", d.Resolver.CrossRefRate)
	v.SetDefault("resolver.arxiv_rate", d.Resolver.ArxivRate)
	v.SetDefault("resolver.max_retries", d.Resolver.MaxRetries)
	v.SetDefault("resolver.retry_base_delay", d.Resolver.RetryBaseDelay)
	v.SetDefault("resolver.exact_year_confidence", d.Resolver.ExactYearConfidence)
	v.SetDefault("resolver.partial_year_confidence", d.Resolver.PartialYearConfidence)
	v.SetDefault("resolver.min_match_confidence", d.Resolver.MinMatchConfidence)
	v.SetDefault("resolver.arxiv_confidence", d.Resolver.ArxivConfidence)
	v.SetDefault("resolver.unresolved_confidence", d.Resolver.UnresolvedConfidence)

	v.SetDefault("cache.backend", string(d.Cache.Backend))
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.disabled", d.Cache.Disabled)

	v.SetDefault("formatter.confidence_threshold", d.Formatter.ConfidenceThreshold)

	v.SetDefault("engine.cached_confidence", d.Engine.CachedConfidence)
	v.SetDefault("engine.bibliography_heading", d.Engine.BibliographyHeading)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig reads the effective configuration from viper.
func loadConfig() types.Config {
	return configFrom(viper.GetViper())
}

func configFrom(v *viper.Viper) types.Config {
	return types.Config{
		Extractor: types.ExtractorConfig{
			PrimaryConfidence:   v.GetFloat64("extractor.primary_confidence"),
			SecondaryConfidence: v.GetFloat64("extractor.secondary_confidence"),
			TertiaryConfidence:  v.GetFloat64("extractor.tertiary_confidence"),
		},
		Resolver: types.ResolverConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("resolver.timeout"),
				UserAgent: v.GetString("resolver.user_agent"),
			},
			CrossRefURL:           v.GetString("resolver.crossref_url"),
			ArxivURL:              v.GetString("resolver.arxiv_url"),
			Mailto:                secretDefault(secrets.CrossRefMailto, v.GetString("resolver.mailto")),
			CrossRefRate:          v.GetFloat64("resolver.crossref_rate"),
			ArxivRate:             v.GetFloat64("resolver.arxiv_rate"),
			MaxRetries:            v.GetInt("resolver.max_retries"),
			RetryBaseDelay:        v.GetDuration("resolver.retry_base_delay"),
			ExactYearConfidence:   v.GetFloat64("resolver.exact_year_confidence"),
			PartialYearConfidence: v.GetFloat64("resolver.partial_year_confidence"),
			MinMatchConfidence:    v.GetFloat64("resolver.min_match_confidence"),
			ArxivConfidence:       v.GetFloat64("resolver.arxiv_confidence"),
			UnresolvedConfidence:  v.GetFloat64("resolver.unresolved_confidence"),
		},
		Cache: types.CacheConfig{
			Backend:  types.CacheBackend(v.GetString("cache.backend")),
			Path:     v.GetString("cache.path"),
			TTL:      v.GetDuration("cache.ttl"),
			Disabled: v.GetBool("cache.disabled"),
		},
		Formatter: types.FormatterConfig{
			ConfidenceThreshold: v.GetFloat64("formatter.confidence_threshold"),
		},
		Engine: types.EngineConfig{
			CachedConfidence:    v.GetFloat64("engine.cached_confidence"),
			BibliographyHeading: v.GetString("engine.bibliography_heading"),
		},
		Log: types.LoggingConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

func loggerFor(cfg types.Config, w io.Writer) zerolog.Logger {
	return observability.NewLogger(cfg.Log, w)
}

// pipeline holds the components built from one configuration for the
// lifetime of a command.
type pipeline struct {
	cfg      types.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	cache    *cache.Cache
	closers  []func() error
}

// newPipeline builds the logger, metrics and, unless disabled, the cache.
func newPipeline(cfg types.Config, stderr io.Writer) (*pipeline, error) {
	p := &pipeline{
		cfg:      cfg,
		log:      loggerFor(cfg, stderr),
		registry: prometheus.NewRegistry(),
	}
	p.metrics = observability.NewMetrics(p.registry)

	if cfg.Cache.Disabled {
		return p, nil
	}
	c, closeFn, err := openCache(cfg.Cache, p.log)
	if err != nil {
		return nil, err
	}
	p.cache = c
	if closeFn != nil {
		p.closers = append(p.closers, closeFn)
	}
	return p, nil
}

// openCache opens the configured backend. The returned close function is
// nil for backends without resources to release.
func openCache(cfg types.CacheConfig, log zerolog.Logger) (*cache.Cache, func() error, error) {
	opts := []cache.Option{cache.WithTTL(cfg.TTL), cache.WithLogger(log)}

	switch cfg.Backend {
	case types.CacheJSON, "":
		return cache.New(cache.NewJSONFile(cfg.Path), opts...), nil, nil
	case types.CacheSQLite:
		db, err := cache.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening cache: %w", err)
		}
		return cache.New(db, opts...), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q: use json or sqlite", cfg.Backend)
	}
}

func (p *pipeline) resolver() *resolve.Resolver {
	return resolve.New(p.cfg.Resolver,
		resolve.WithLogger(p.log),
		resolve.WithMetrics(p.metrics),
	)
}

func (p *pipeline) engine(opts ...engine.Option) *engine.Engine {
	base := []engine.Option{
		engine.WithLogger(p.log),
		engine.WithMetrics(p.metrics),
		engine.WithCachedConfidence(p.cfg.Engine.CachedConfidence),
		engine.WithUnresolvedConfidence(p.cfg.Resolver.UnresolvedConfidence),
		engine.WithBibliography(true, p.cfg.Engine.BibliographyHeading),
	}
	if p.cache != nil {
		base = append(base, engine.WithCache(p.cache))
	}
	return engine.New(
		extract.New(p.cfg.Extractor),
		p.resolver(),
		format.New(p.cfg.Formatter.ConfidenceThreshold),
		append(base, opts...)...,
	)
}

// Close releases backend resources.
func (p *pipeline) Close() error {
	var firstErr error
	for _, fn := range p.closers {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
