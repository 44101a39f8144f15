// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract finds author-year citations in article text.
// It runs a fixed, prioritized list of patterns over the text, filters
// false positives and implausible years, and returns citations in order
// of appearance.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/citelink/pkg/types"
)

// Valid publication year range, inclusive.
const (
	MinYear = 1900
	MaxYear = 2099
)

// Pattern names.
const (
	PatternPrimary   = "primary"
	PatternSecondary = "secondary"
	PatternTertiary  = "tertiary"
)

// Citation regex patterns. Group 1 captures the authors, group 2 the year.
var (
	// primaryRe matches "Smith (2024)", "Smith et al. (2024)",
	// "Smith & Jones (2024)" and "Smith and Jones (2024)".
	primaryRe = regexp.MustCompile(`([A-Z][a-z]+(?:\s+(?:et al\.|&|and)\s+)?(?:[A-Z][a-z]+)*)\s*\((\d{4})\)`)

	// secondaryRe matches "Smith et al (2024)" with the period missing.
	secondaryRe = regexp.MustCompile(`([A-Z][a-z]+\s+et\s+al)\s*\((\d{4})\)`)

	// tertiaryRe matches "Smith, et al. (2024)" with a comma before et al.
	tertiaryRe = regexp.MustCompile(`([A-Z][a-z]+,\s+et\s+al\.?)\s*\((\d{4})\)`)

	// etAlRe matches every spelling of "et al" for normalization.
	etAlRe = regexp.MustCompile(`(?i)\bet\s+al\.?`)
)

// falsePositives are capitalized words that precede a parenthesized year
// without being authors ("Table (2020)", "March (2021)").
var falsePositives = map[string]bool{
	"Chapter":   true,
	"Section":   true,
	"Figure":    true,
	"Table":     true,
	"January":   true,
	"February":  true,
	"March":     true,
	"April":     true,
	"May":       true,
	"June":      true,
	"July":      true,
	"August":    true,
	"September": true,
	"October":   true,
	"November":  true,
	"December":  true,
	"According": true,
	"Available": true,
	"Based":     true,
	"Located":   true,
	"Retrieved": true,
}

// Pattern pairs a citation regex with the confidence assigned to its matches.
type Pattern struct {
	Name       string
	Re         *regexp.Regexp
	Confidence float64
}

// Extractor scans text for citations. The zero value is not usable; use New.
type Extractor struct {
	patterns []Pattern
}

// New returns an Extractor whose pattern confidences come from cfg.
// Patterns run in priority order: primary, secondary, tertiary.
func New(cfg types.ExtractorConfig) *Extractor {
	return &Extractor{
		patterns: []Pattern{
			{Name: PatternPrimary, Re: primaryRe, Confidence: cfg.PrimaryConfidence},
			{Name: PatternSecondary, Re: secondaryRe, Confidence: cfg.SecondaryConfidence},
			{Name: PatternTertiary, Re: tertiaryRe, Confidence: cfg.TertiaryConfidence},
		},
	}
}

// Patterns returns the extractor's patterns in priority order.
func (e *Extractor) Patterns() []Pattern {
	out := make([]Pattern, len(e.patterns))
	copy(out, e.patterns)
	return out
}

// Extract returns every citation found in text, sorted by start offset.
// A span claimed by a higher-priority pattern is never reported again by
// a lower-priority one.
func (e *Extractor) Extract(text string) []types.Citation {
	seen := make(map[types.Span]bool)
	var citations []types.Citation

	for _, p := range e.patterns {
		citations = append(citations, extractWithPattern(text, p, seen)...)
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Position.Start < citations[j].Position.Start
	})
	return citations
}

func extractWithPattern(text string, p Pattern, seen map[types.Span]bool) []types.Citation {
	var citations []types.Citation

	for _, m := range p.Re.FindAllStringSubmatchIndex(text, -1) {
		span := types.Span{Start: m[0], End: m[1]}
		if seen[span] {
			continue
		}

		authors := strings.TrimSpace(text[m[2]:m[3]])
		if falsePositives[authors] {
			continue
		}

		year, ok := parseYear(text[m[4]:m[5]])
		if !ok {
			continue
		}

		citations = append(citations, types.Citation{
			Authors:      NormalizeAuthors(authors),
			Year:         year,
			OriginalText: text[m[0]:m[1]],
			Position:     span,
			Confidence:   p.Confidence,
			Pattern:      p.Name,
		})
		seen[span] = true
	}
	return citations
}

// parseYear converts a four-digit capture and checks it is a plausible
// publication year.
func parseYear(s string) (int, bool) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, ValidYear(year)
}

// ValidYear reports whether year is within [MinYear, MaxYear].
func ValidYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// NormalizeAuthors strips trailing commas and rewrites "et al", "et al."
// and "ET AL" to "et al.".
func NormalizeAuthors(authors string) string {
	authors = strings.TrimRight(authors, ",")
	authors = etAlRe.ReplaceAllString(authors, "et al.")
	return strings.TrimSpace(authors)
}

// IsFalsePositive reports whether word is a known non-author token.
func IsFalsePositive(word string) bool {
	return falsePositives[word]
}
