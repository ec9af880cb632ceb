package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for crawledAt, with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Manifest is the structured report of one crawl run.
type Manifest struct {
	// CrawledAt is when the manifest was produced, in UTC.
	CrawledAt time.Time `json:"crawledAt"`

	// BaseURL is the start URL as given by the user.
	BaseURL string `json:"baseUrl"`

	// TotalPages is len(Pages).
	TotalPages int `json:"totalPages"`

	// Pages holds one result per fetched URL, sorted by path.
	Pages []PageResult `json:"pages"`
}

// NewManifest builds a manifest from the final result sequence.
// The pages are copied and sorted, so the order in which they were
// discovered does not show in the report.
func NewManifest(crawledAt time.Time, baseURL string, pages []PageResult) *Manifest {
	sorted := make([]PageResult, len(pages))
	copy(sorted, pages)
	SortPages(sorted)

	return &Manifest{
		CrawledAt:  crawledAt.UTC().Truncate(time.Millisecond),
		BaseURL:    baseURL,
		TotalPages: len(sorted),
		Pages:      sorted,
	}
}

// SortPages orders results by path, then by full URL.
func SortPages(pages []PageResult) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Path != pages[j].Path {
			return pages[i].Path < pages[j].Path
		}
		return pages[i].URL < pages[j].URL
	})
}

// Summary returns the counts for the manifest's pages.
func (m *Manifest) Summary() Summary {
	return Summarize(m.Pages)
}

// manifestJSON is the wire shape with a formatted timestamp.
type manifestJSON struct {
	CrawledAt  string       `json:"crawledAt"`
	BaseURL    string       `json:"baseUrl"`
	TotalPages int          `json:"totalPages"`
	Pages      []PageResult `json:"pages"`
}

// MarshalJSON writes crawledAt with TimestampLayout.
func (m Manifest) MarshalJSON() ([]byte, error) {
	pages := m.Pages
	if pages == nil {
		pages = []PageResult{}
	}
	return json.Marshal(manifestJSON{
		CrawledAt:  m.CrawledAt.UTC().Format(TimestampLayout),
		BaseURL:    m.BaseURL,
		TotalPages: m.TotalPages,
		Pages:      pages,
	})
}

// UnmarshalJSON reads a manifest written by MarshalJSON or any RFC 3339 timestamp.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw manifestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	crawledAt, err := time.Parse(time.RFC3339Nano, raw.CrawledAt)
	if err != nil {
		return fmt.Errorf("invalid crawledAt %q: %w", raw.CrawledAt, err)
	}

	m.CrawledAt = crawledAt.UTC()
	m.BaseURL = raw.BaseURL
	m.TotalPages = raw.TotalPages
	m.Pages = raw.Pages
	return nil
}
