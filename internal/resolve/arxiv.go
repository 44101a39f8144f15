// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/citelink/internal/httputil"
	"github.com/pdiddy/citelink/pkg/types"
)

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID    string      `xml:"id"`
	Links []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
}

// arxivLookup searches arXiv for a preprint by author submitted within the
// queried year.
type arxivLookup struct {
	client *http.Client
	lim    *httputil.Limiter
	retry  httputil.RetryPolicy
	cfg    types.ResolverConfig
}

func (a *arxivLookup) api() string { return "arxiv" }

func (a *arxivLookup) lookup(ctx context.Context, authors string, year int) (types.ResolvedCitation, bool, error) {
	params := url.Values{}
	params.Set("search_query", buildArxivQuery(authors, year))
	params.Set("max_results", "1")

	body, err := httputil.Get(ctx, a.client, a.lim, a.retry, a.cfg.ArxivURL+"?"+params.Encode(), a.cfg.UserAgent, "application/atom+xml")
	if err != nil {
		return types.ResolvedCitation{}, false, fmt.Errorf("arXiv API request: %w", err)
	}

	if !bytes.Contains(body, []byte("<entry")) {
		return types.ResolvedCitation{}, false, nil
	}

	id, err := feedArxivID(body)
	if err != nil {
		return types.ResolvedCitation{}, false, err
	}
	if id == "" {
		return types.ResolvedCitation{}, false, nil
	}

	link := CanonicalURL(TypeArxiv, id)
	return types.ResolvedCitation{
		ArxivID:    id,
		URL:        link,
		Confidence: a.cfg.ArxivConfidence,
		SourceURI:  link,
		Source:     "arxiv",
	}, true, nil
}

// feedArxivID returns the ID of the feed's first entry. A body that is not
// well-formed Atom is scanned for the first abstract-page URL instead.
func feedArxivID(body []byte) (string, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		m := arxivAbsPattern.FindSubmatch(body)
		if m == nil {
			return "", fmt.Errorf("parsing arXiv response: %w", err)
		}
		return strings.TrimSuffix(string(m[1]), "."), nil
	}
	if len(feed.Entries) == 0 {
		return "", nil
	}
	return entryArxivID(feed.Entries[0]), nil
}

// buildArxivQuery combines an author filter with a submission-date range
// covering the whole year.
func buildArxivQuery(authors string, year int) string {
	return fmt.Sprintf(`au:"%s" AND submittedDate:[%04d0101000000 TO %04d1231235959]`, authors, year, year)
}

// entryArxivID pulls the arXiv ID from the entry's <id> URL, falling back
// to its links (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func entryArxivID(e arxivEntry) string {
	candidates := []string{e.ID}
	for _, l := range e.Links {
		candidates = append(candidates, l.Href)
	}
	for _, c := range candidates {
		if m := arxivAbsPattern.FindStringSubmatch(c); m != nil {
			if id := strings.TrimSuffix(m[1], "."); id != "" {
				return id
			}
		}
	}
	return ""
}
