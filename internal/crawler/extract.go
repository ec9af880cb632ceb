package crawler

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitesnap/internal/fetcher"
)

// Extractor produces the raw references of a fetched page.
// References are returned as written in the page; FilterLinks resolves
// and filters them.
type Extractor interface {
	// References returns the references found in out.
	References(out fetcher.Outcome) []string

	// Name identifies the extractor in logs.
	Name() string
}

// referencePatterns match href and src attributes, quoted or not.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)href=(?:["']([^"']+)["']|([^\s>]+))`),
	regexp.MustCompile(`(?i)src=(?:["']([^"']+)["']|([^\s>]+))`),
}

// RegexExtractor scans raw markup for href and src attributes without
// parsing it, so broken markup still yields its links.
type RegexExtractor struct{}

// NewRegexExtractor returns a RegexExtractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Name implements Extractor.
func (e *RegexExtractor) Name() string {
	return "regex"
}

// References implements Extractor. All href matches come before all src matches.
func (e *RegexExtractor) References(out fetcher.Outcome) []string {
	var refs []string
	for _, re := range referencePatterns {
		for _, m := range re.FindAllSubmatch(out.Body, -1) {
			if len(m[1]) > 0 {
				refs = append(refs, string(m[1]))
			} else {
				refs = append(refs, string(m[2]))
			}
		}
	}
	return refs
}

// HTMLExtractor parses markup with goquery and collects href and src
// attributes of any element. Entities in attribute values are decoded.
type HTMLExtractor struct{}

// NewHTMLExtractor returns an HTMLExtractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name implements Extractor.
func (e *HTMLExtractor) Name() string {
	return "html"
}

// References implements Extractor.
func (e *HTMLExtractor) References(out fetcher.Outcome) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out.Body))
	if err != nil {
		return nil
	}

	var refs []string
	for _, attr := range []string{"href", "src"} {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				refs = append(refs, v)
			}
		})
	}
	return refs
}

// DOMExtractor returns the anchors read from the live document by the
// browser fetcher, which include links injected by scripts.
type DOMExtractor struct{}

// NewDOMExtractor returns a DOMExtractor.
func NewDOMExtractor() *DOMExtractor {
	return &DOMExtractor{}
}

// Name implements Extractor.
func (e *DOMExtractor) Name() string {
	return "dom"
}

// References implements Extractor.
func (e *DOMExtractor) References(out fetcher.Outcome) []string {
	refs := make([]string, len(out.Anchors))
	copy(refs, out.Anchors)
	return refs
}

// PageTitle returns the trimmed text of the document's <title>, or "".
func PageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
