// File: internal/extract/extract.go

// Package extract distills rendered page HTML into a compact text digest.
// The digest rides along on step results and, on mission completion, backs
// the final summary the caller receives.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// maxItems bounds the digest so step responses stay small.
	maxItems = 40
	// maxItemLength truncates individual entries.
	maxItemLength = 300
)

// Extractor turns page HTML into a readable digest of the page's headings,
// links and list content.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("extract")}
}

// Extract parses the HTML and returns a digest. Extraction is opportunistic:
// a page with no recognizable content yields an empty string, never an error.
// Relative links are resolved against baseURL.
func (e *Extractor) Extract(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Debug("Failed to parse page HTML", zap.Error(err))
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	doc.Find("script, style, noscript, svg, iframe").Remove()

	var items []string
	seen := make(map[string]struct{})

	add := func(s string) {
		s = collapseWhitespace(s)
		if s == "" {
			return
		}
		if len(s) > maxItemLength {
			s = s[:maxItemLength] + "..."
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		items = append(items, s)
	}

	title := collapseWhitespace(doc.Find("title").First().Text())
	if title != "" {
		add("Title: " + title)
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		add("# " + sel.Text())
		return len(items) < maxItems
	})

	doc.Find("article p, main p, li").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := collapseWhitespace(sel.Text())
		// Skip navigation crumbs and decorative fragments.
		if len(text) < 30 {
			return true
		}
		add(text)
		return len(items) < maxItems
	})

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := collapseWhitespace(sel.Text())
		href, _ := sel.Attr("href")
		href = absolute(base, href)
		if text == "" || href == "" {
			return true
		}
		add(fmt.Sprintf("[%s](%s)", text, href))
		return len(items) < maxItems
	})

	return strings.Join(items, "\n")
}

// absolute resolves href against the page URL, dropping fragments and
// javascript pseudo-links.
func absolute(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
