package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that call
// external APIs.
type HTTPConfig struct {
	// Timeout bounds each individual API call (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citelink/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ExtractorConfig holds the fixed per-pattern extraction confidences.
type ExtractorConfig struct {
	// PrimaryConfidence applies to "Author (YEAR)", "Author et al. (YEAR)"
	// and "Author & Author (YEAR)" matches (default 1.0).
	PrimaryConfidence float64 `json:"primary_confidence" yaml:"primary_confidence"`

	// SecondaryConfidence applies to "Author et al (YEAR)" (default 0.9).
	SecondaryConfidence float64 `json:"secondary_confidence" yaml:"secondary_confidence"`

	// TertiaryConfidence applies to "Author, et al. (YEAR)" (default 0.85).
	TertiaryConfidence float64 `json:"tertiary_confidence" yaml:"tertiary_confidence"`
}

// ResolverConfig holds settings for the CrossRef and arXiv lookups.
type ResolverConfig struct {
	HTTPConfig `yaml:",inline"`

	// CrossRefURL is the CrossRef works search endpoint.
	CrossRefURL string `json:"crossref_url" yaml:"crossref_url"`

	// ArxivURL is the arXiv Atom query endpoint.
	ArxivURL string `json:"arxiv_url" yaml:"arxiv_url"`

	// Mailto is sent to CrossRef to join its polite pool. Optional.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`

	// CrossRefRate is the sustained CrossRef request rate per second.
	// Zero or negative disables limiting.
	CrossRefRate float64 `json:"crossref_rate" yaml:"crossref_rate"`

	// ArxivRate is the sustained arXiv request rate per second.
	// Zero or negative disables limiting.
	ArxivRate float64 `json:"arxiv_rate" yaml:"arxiv_rate"`

	// MaxRetries bounds retries of HTTP 429 responses per API call
	// (default 1). Retries never outlast Timeout.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the first backoff after a 429 (default 1s); it
	// doubles on each further retry.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// ExactYearConfidence is assigned when CrossRef's year equals the
	// queried year (default 0.9).
	ExactYearConfidence float64 `json:"exact_year_confidence" yaml:"exact_year_confidence"`

	// PartialYearConfidence is assigned on a year mismatch (default 0.6).
	PartialYearConfidence float64 `json:"partial_year_confidence" yaml:"partial_year_confidence"`

	// MinMatchConfidence rejects CrossRef matches below it (default 0.7).
	MinMatchConfidence float64 `json:"min_match_confidence" yaml:"min_match_confidence"`

	// ArxivConfidence is assigned to identifiers taken from arXiv
	// metadata (default 0.85).
	ArxivConfidence float64 `json:"arxiv_confidence" yaml:"arxiv_confidence"`

	// UnresolvedConfidence is reported when every strategy fails
	// (default 0.0).
	UnresolvedConfidence float64 `json:"unresolved_confidence" yaml:"unresolved_confidence"`
}

// CacheBackend selects where resolutions are persisted.
type CacheBackend string

const (
	CacheJSON   CacheBackend = "json"
	CacheSQLite CacheBackend = "sqlite"
)

// CacheConfig holds settings for the resolution cache.
type CacheConfig struct {
	// Backend selects json (default) or sqlite storage.
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// Path is the cache file (default data/citations_cache.json).
	Path string `json:"path" yaml:"path"`

	// TTL is the freshness window for entries (default 30 days).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Disabled skips the cache entirely.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// FormatterConfig holds settings for link formatting.
type FormatterConfig struct {
	// ConfidenceThreshold is the minimum resolution confidence needed to
	// create a link (default 0.7).
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// EngineConfig holds settings for the article pipeline.
type EngineConfig struct {
	// CachedConfidence is assigned to resolutions served from the cache
	// (default 0.95).
	CachedConfidence float64 `json:"cached_confidence" yaml:"cached_confidence"`

	// BibliographyHeading titles the block appended to articles.
	BibliographyHeading string `json:"bibliography_heading" yaml:"bibliography_heading"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format"`
}

// Config groups all component configurations.
type Config struct {
	Extractor ExtractorConfig `json:"extractor" yaml:"extractor"`
	Resolver  ResolverConfig  `json:"resolver" yaml:"resolver"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Formatter FormatterConfig `json:"formatter" yaml:"formatter"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Log       LoggingConfig   `json:"log" yaml:"log"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Extractor: ExtractorConfig{
			PrimaryConfidence:   1.0,
			SecondaryConfidence: 0.9,
			TertiaryConfidence:  0.85,
		},
		Resolver: DefaultResolverConfig(),
		Cache: CacheConfig{
			Backend: CacheJSON,
			Path:    "data/citations_cache.json",
			TTL:     30 * 24 * time.Hour,
		},
		Formatter: FormatterConfig{
			ConfidenceThreshold: 0.7,
		},
		Engine: EngineConfig{
			CachedConfidence:    0.95,
			BibliographyHeading: "Cited Works",
		},
		Log: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// DefaultResolverConfig returns resolver settings pointing at the public
// CrossRef and arXiv endpoints.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "citelink/0.1",
		},
		CrossRefURL:           "https://api.crossref.org/v1/works",
		ArxivURL:              "https://export.arxiv.org/api/query",
		CrossRefRate:          10,
		ArxivRate:             1.0 / 3.0,
		MaxRetries:            1,
		RetryBaseDelay:        time.Second,
		ExactYearConfidence:   0.9,
		PartialYearConfidence: 0.6,
		MinMatchConfidence:    0.7,
		ArxivConfidence:       0.85,
		UnresolvedConfidence:  0.0,
	}
}
