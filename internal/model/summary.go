package model

import "sort"

// Summary counts a crawl's results.
type Summary struct {
	// Total is the number of results.
	Total int `json:"total"`

	// Saved is the number of pages with artifacts written.
	Saved int `json:"saved"`

	// Skipped is the number of responses that were recorded but not saved.
	Skipped int `json:"skipped"`

	// Failed is the number of ERROR results.
	Failed int `json:"failed"`

	// Redirects is the number of 3xx results.
	Redirects int `json:"redirects"`

	// ByStatus holds one count per distinct status, ordered by the status text.
	ByStatus []StatusCount `json:"byStatus"`
}

// StatusCount is the number of results with one status.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// Summarize counts results per outcome and per status.
func Summarize(pages []PageResult) Summary {
	s := Summary{Total: len(pages)}
	counts := make(map[Status]int)

	for _, p := range pages {
		counts[p.Status]++
		if p.Status.IsRedirect() {
			s.Redirects++
		}
		switch p.Outcome() {
		case "saved":
			s.Saved++
		case "skipped":
			s.Skipped++
		case "error":
			s.Failed++
		}
	}

	s.ByStatus = make([]StatusCount, 0, len(counts))
	for status, count := range counts {
		s.ByStatus = append(s.ByStatus, StatusCount{Status: status, Count: count})
	}
	sort.Slice(s.ByStatus, func(i, j int) bool {
		return s.ByStatus[i].Status.String() < s.ByStatus[j].Status.String()
	})

	return s
}

// Count returns the number of results with the given status.
func (s Summary) Count(status Status) int {
	for _, sc := range s.ByStatus {
		if sc.Status == status {
			return sc.Count
		}
	}
	return 0
}
