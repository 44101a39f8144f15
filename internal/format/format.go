// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format turns resolved citations into markdown links and rewrites
// article text with them.
package format

import (
	"fmt"
	"strings"

	"github.com/pdiddy/citelink/pkg/types"
)

// DefaultThreshold is the minimum resolution confidence for a link.
const DefaultThreshold = 0.7

// Formatter gates linking on resolution confidence.
type Formatter struct {
	threshold float64
}

// New returns a Formatter that links resolutions with confidence at or
// above threshold.
func New(threshold float64) *Formatter {
	return &Formatter{threshold: threshold}
}

// Threshold returns the confidence gate.
func (f *Formatter) Threshold() float64 {
	return f.threshold
}

// Format pairs a citation with its resolution. Resolutions without a URL
// or below the threshold pass the original text through unchanged.
func (f *Formatter) Format(c types.Citation, r types.ResolvedCitation) types.FormattedCitation {
	out := types.FormattedCitation{
		Markdown: c.OriginalText,
		Original: c.OriginalText,
		Citation: c,
		Resolved: r,
	}
	if r.URL == "" || r.Confidence < f.threshold {
		return out
	}
	out.Markdown = fmt.Sprintf("[%s](%s)", c.OriginalText, r.URL)
	out.WasResolved = true
	return out
}

// ApplyToText substitutes each resolved citation into text. Only the first
// occurrence of each distinct original string is replaced, so repeated
// identical citations link once. Positions are looked up in the current
// text before every replacement and the rightmost match goes first.
func (f *Formatter) ApplyToText(text string, formatted []types.FormattedCitation) string {
	seen := make(map[string]bool)
	var pending []types.FormattedCitation
	for _, fc := range formatted {
		if !fc.WasResolved || fc.Original == "" || seen[fc.Original] {
			continue
		}
		seen[fc.Original] = true
		pending = append(pending, fc)
	}

	for len(pending) > 0 {
		best, bestPos := -1, -1
		for i, fc := range pending {
			if pos := strings.Index(text, fc.Original); pos > bestPos {
				best, bestPos = i, pos
			}
		}
		if best < 0 {
			break
		}

		fc := pending[best]
		text = text[:bestPos] + fc.Markdown + text[bestPos+len(fc.Original):]
		pending = append(pending[:best], pending[best+1:]...)
	}
	return text
}

// BuildBibliography returns one markdown line per distinct resolved work,
// in encounter order. Citations resolving to the same source collapse to
// the first one seen.
func (f *Formatter) BuildBibliography(formatted []types.FormattedCitation) []string {
	seen := make(map[string]bool)
	var lines []string
	for _, fc := range formatted {
		if !fc.WasResolved {
			continue
		}
		key := sourceKey(fc.Resolved)
		if seen[key] {
			continue
		}
		seen[key] = true
		lines = append(lines, fmt.Sprintf("- [%s](%s)", label(fc), fc.Resolved.URL))
	}
	return lines
}

// BibliographySection renders lines under a second-level heading, ready to
// append to an article. It returns "" for no lines.
func BibliographySection(heading string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", heading)
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func sourceKey(r types.ResolvedCitation) string {
	if r.SourceURI != "" {
		return r.SourceURI
	}
	return r.URL
}

func label(fc types.FormattedCitation) string {
	if fc.Citation.Authors == "" {
		return fc.Original
	}
	return fmt.Sprintf("%s (%d)", fc.Citation.Authors, fc.Citation.Year)
}
