// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/citelink/internal/httputil"
	"github.com/pdiddy/citelink/pkg/types"
)

// CrossRef works-search JSON structures. Only the fields the resolver
// scores on are decoded.
type crossrefSearchResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Items []crossrefItem `json:"items"`
}

type crossrefItem struct {
	DOI       string       `json:"DOI"`
	Published crossrefDate `json:"published"`
}

type crossrefDate struct {
	// CrossRef emits [[null]] for unknown dates, hence the pointers.
	DateParts [][]*int `json:"date-parts"`
}

// year returns the first date part, or 0 when the date is unknown.
func (d crossrefDate) year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == nil {
		return 0
	}
	return *d.DateParts[0][0]
}

// crossrefLookup queries the CrossRef works API with a free-text
// "{authors} {year}" query and scores the top hit on its year.
type crossrefLookup struct {
	client *http.Client
	lim    *httputil.Limiter
	retry  httputil.RetryPolicy
	cfg    types.ResolverConfig
}

func (c *crossrefLookup) api() string { return "crossref" }

func (c *crossrefLookup) lookup(ctx context.Context, authors string, year int) (types.ResolvedCitation, bool, error) {
	params := url.Values{}
	params.Set("query", authors+" "+strconv.Itoa(year))
	params.Set("rows", "1")
	if c.cfg.Mailto != "" {
		params.Set("mailto", c.cfg.Mailto)
	}

	body, err := httputil.Get(ctx, c.client, c.lim, c.retry, c.cfg.CrossRefURL+"?"+params.Encode(), c.cfg.UserAgent, "application/json")
	if err != nil {
		return types.ResolvedCitation{}, false, fmt.Errorf("CrossRef API request: %w", err)
	}

	var resp crossrefSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.ResolvedCitation{}, false, fmt.Errorf("parsing CrossRef response: %w", err)
	}
	if len(resp.Message.Items) == 0 {
		return types.ResolvedCitation{}, false, nil
	}

	item := resp.Message.Items[0]
	confidence := c.cfg.PartialYearConfidence
	if item.Published.year() == year {
		confidence = c.cfg.ExactYearConfidence
	}

	// A year-mismatched hit is dropped rather than returned with low
	// confidence, so any non-empty result is a usable one.
	if confidence < c.cfg.MinMatchConfidence {
		return types.ResolvedCitation{}, false, nil
	}
	if item.DOI == "" {
		return types.ResolvedCitation{}, false, nil
	}

	link := CanonicalURL(TypeDOI, item.DOI)
	return types.ResolvedCitation{
		DOI:        item.DOI,
		URL:        link,
		Confidence: confidence,
		SourceURI:  link,
		Source:     "crossref",
	}, true, nil
}
