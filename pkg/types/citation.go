// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the citation engine.
// Citation is produced by extraction, ResolvedCitation by resolution,
// FormattedCitation by formatting, and CacheEntry is the record the cache
// persists between runs.
package types

import (
	"fmt"
	"time"
)

// Span is a half-open [Start, End) byte range into the text a citation was
// extracted from. Offsets are only valid for that exact text: any earlier
// substitution shifts them.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Citation is an author-year reference found in article text, such as
// "Smith et al. (2024)".
type Citation struct {
	// Authors is the normalized author string (e.g. "Smith et al.").
	Authors string `json:"authors" yaml:"authors"`

	// Year is the publication year, always within [1900, 2099].
	Year int `json:"year" yaml:"year"`

	// OriginalText is the exact matched substring, used for replacement.
	OriginalText string `json:"original_text" yaml:"original_text"`

	// Position locates OriginalText in the scanned text.
	Position Span `json:"position" yaml:"position"`

	// Confidence is the fixed confidence of the pattern that matched.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Pattern names the extraction pattern that matched
	// ("primary", "secondary", "tertiary").
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Key returns the cache key for the citation's author and year.
func (c Citation) Key() string {
	return CacheKey(c.Authors, c.Year)
}

// ResolvedCitation is the outcome of looking a citation up in external
// bibliographic APIs. An empty URL means the citation is unresolved.
type ResolvedCitation struct {
	DOI     string `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	PMID    string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`

	// Confidence rates the resolution, independent of extraction confidence.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// SourceURI is the bibliography de-duplication key. It currently
	// equals URL.
	SourceURI string `json:"source_uri,omitempty" yaml:"source_uri,omitempty"`

	// Source names what produced the resolution: "crossref", "arxiv",
	// "cache", or empty when unresolved.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// IsResolved reports whether a link target was found.
func (r ResolvedCitation) IsResolved() bool {
	return r.URL != ""
}

// Unresolved returns a resolution with every identifier empty.
func Unresolved(confidence float64) ResolvedCitation {
	return ResolvedCitation{Confidence: confidence}
}

// FormattedCitation is a citation ready to be substituted into text.
type FormattedCitation struct {
	// Markdown is either the original text or "[original](url)".
	Markdown string `json:"markdown" yaml:"markdown"`

	// Original is the citation text to search for in the article.
	Original string `json:"original" yaml:"original"`

	// WasResolved gates substitution and bibliography inclusion.
	WasResolved bool `json:"was_resolved" yaml:"was_resolved"`

	Citation Citation         `json:"citation" yaml:"citation"`
	Resolved ResolvedCitation `json:"resolved" yaml:"resolved"`
}

// CacheEntry is one cached resolution. DOI and URL are empty when the
// lookup found nothing.
type CacheEntry struct {
	Authors   string    `json:"authors" yaml:"authors"`
	Year      int       `json:"year" yaml:"year"`
	DOI       string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL       string    `json:"url,omitempty" yaml:"url,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// CacheKey builds the exact-match cache key "{authors}_{year}". No
// normalization is applied: "Smith" and "Smith et al." are different keys.
func CacheKey(authors string, year int) string {
	return fmt.Sprintf("%s_%d", authors, year)
}
