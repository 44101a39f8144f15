// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citelink/internal/format"
)

const frontmatterFence = "---"

// ArticleResult is the outcome of processing a markdown document.
type ArticleResult struct {
	Result

	// Frontmatter is the fenced YAML block, verbatim, or "".
	Frontmatter string `json:"frontmatter,omitempty"`

	// Document is the rewritten document: frontmatter, linked body and,
	// when anything resolved, the bibliography section.
	Document string `json:"document"`
}

// ProcessArticle links citations in the body of a markdown document. A
// leading YAML frontmatter block is left untouched.
func (e *Engine) ProcessArticle(ctx context.Context, doc string) ArticleResult {
	front, body, _ := SplitFrontmatter(doc)
	res := e.Process(ctx, body)

	out := res.Text
	if e.bibliography && len(res.Bibliography) > 0 {
		out = appendSection(out, format.BibliographySection(e.heading, res.Bibliography))
	}

	return ArticleResult{
		Result:      res,
		Frontmatter: front,
		Document:    front + out,
	}
}

// SplitFrontmatter separates a leading "---" fenced YAML block from the
// rest of doc. front includes both fences and the newline after the
// closing one. A block that is not a YAML mapping is treated as body text.
func SplitFrontmatter(doc string) (front, body string, ok bool) {
	first, rest, found := strings.Cut(doc, "\n")
	if !found || strings.TrimRight(first, "\r") != frontmatterFence {
		return "", doc, false
	}

	offset := len(first) + 1
	for rest != "" {
		line, next, more := strings.Cut(rest, "\n")
		lineEnd := offset + len(line)
		if more {
			lineEnd++
		}
		if strings.TrimRight(line, "\r") == frontmatterFence {
			yamlText := doc[len(first)+1 : offset]
			if !isMapping(yamlText) {
				return "", doc, false
			}
			return doc[:lineEnd], doc[lineEnd:], true
		}
		offset = lineEnd
		rest = next
	}
	return "", doc, false
}

func isMapping(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	var fields map[string]any
	return yaml.Unmarshal([]byte(text), &fields) == nil
}

func appendSection(body, section string) string {
	switch {
	case body == "":
		return section
	case strings.HasSuffix(body, "\n\n"):
		return body + section
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + section
	default:
		return body + "\n\n" + section
	}
}
