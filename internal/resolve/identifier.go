// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"regexp"
	"strings"

	"github.com/pdiddy/citelink/pkg/types"
)

// IdentifierType classifies a paper identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	default:
		return "unknown"
	}
}

// Canonical link prefixes.
const (
	doiBase      = "https://doi.org/"
	arxivAbsBase = "https://arxiv.org/abs/"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// arxivAbsPattern finds an arXiv ID inside an abstract-page URL. The
// version suffix is left out of the capture.
var arxivAbsPattern = regexp.MustCompile(`arxiv\.org/abs/([\d.]+)`)

// Classify determines the identifier type and returns the normalized form.
// For arXiv, it strips the optional "arXiv:" prefix.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}
	if doiPattern.MatchString(identifier) {
		return TypeDOI, identifier
	}
	return TypeUnknown, identifier
}

// CanonicalURL returns the public link for a normalized identifier, or ""
// for unknown types.
func CanonicalURL(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return arxivAbsBase + normalized
	case TypeDOI:
		return doiBase + normalized
	default:
		return ""
	}
}

// FromURL rebuilds a ResolvedCitation's identifiers from a canonical link.
// doi.org links populate DOI, arxiv.org/abs links populate ArxivID; any
// other URL is kept as the link with no identifier. Confidence and Source
// are left for the caller.
func FromURL(link string) types.ResolvedCitation {
	r := types.ResolvedCitation{URL: link, SourceURI: link}
	if link == "" {
		return r
	}
	if rest, ok := strings.CutPrefix(link, doiBase); ok {
		if t, norm := Classify(rest); t == TypeDOI {
			r.DOI = norm
		}
		return r
	}
	if m := arxivAbsPattern.FindStringSubmatch(link); m != nil {
		r.ArxivID = strings.TrimSuffix(m[1], ".")
	}
	return r
}
