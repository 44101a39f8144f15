// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"io"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citelink/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML form, consumable by Pandoc
// and reference managers.
type CSLItem struct {
	ID     string    `yaml:"id"`
	Type   string    `yaml:"type"`
	Author []CSLName `yaml:"author,omitempty"`
	Issued *CSLDate  `yaml:"issued,omitempty"`
	DOI    string    `yaml:"DOI,omitempty"`
	URL    string    `yaml:"URL,omitempty"`
	Note   string    `yaml:"note,omitempty"`
}

// CSLName is a person's name. Author-year citations only carry surnames.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

var (
	cslEtAlRe  = regexp.MustCompile(`(?i)\s*,?\s*et\s+al\.?`)
	cslSplitRe = regexp.MustCompile(`\s*(?:&|\band\b|,)\s*`)
)

// FormatCSL writes the resolved works in formatted as a CSL-YAML list,
// de-duplicated the same way as BuildBibliography.
func FormatCSL(formatted []types.FormattedCitation, w io.Writer) error {
	seen := make(map[string]bool)
	items := []CSLItem{}
	for _, fc := range formatted {
		if !fc.WasResolved {
			continue
		}
		key := sourceKey(fc.Resolved)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, toCSLItem(fc))
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(fc types.FormattedCitation) CSLItem {
	r := fc.Resolved
	item := CSLItem{
		ID:     cslID(fc),
		Type:   "article-journal",
		Author: parseAuthors(fc.Citation.Authors),
		DOI:    r.DOI,
		URL:    r.URL,
	}
	if r.DOI == "" && r.ArxivID != "" {
		item.Type = "article"
		item.Note = "arXiv:" + r.ArxivID
	}
	if fc.Citation.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{fc.Citation.Year}}}
	}
	return item
}

func cslID(fc types.FormattedCitation) string {
	switch {
	case fc.Resolved.DOI != "":
		return fc.Resolved.DOI
	case fc.Resolved.ArxivID != "":
		return "arXiv:" + fc.Resolved.ArxivID
	default:
		return fc.Citation.Key()
	}
}

// parseAuthors splits an author string like "Smith & Jones" into surnames.
// "et al." becomes a trailing literal "others".
func parseAuthors(authors string) []CSLName {
	etAl := cslEtAlRe.MatchString(authors)
	authors = strings.TrimSpace(cslEtAlRe.ReplaceAllString(authors, ""))

	var names []CSLName
	for _, part := range cslSplitRe.Split(authors, -1) {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, CSLName{Family: part})
		}
	}
	if etAl {
		names = append(names, CSLName{Literal: "others"})
	}
	return names
}
