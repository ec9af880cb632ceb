package model

import "time"

// Run carries one crawl run through the pipeline steps.
// It is created by the command, filled in step by step, and dropped when
// the command returns.
type Run struct {
	// StartURL is the seed URL exactly as the user gave it.
	StartURL string

	// BaseURL is the canonical form of StartURL, set by the crawl step.
	BaseURL string

	// OutputDir is the directory receiving html/, screenshots/ and manifest.json.
	OutputDir string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Results holds the page results in fetch order.
	Results []PageResult

	// Manifest is set by the manifest step.
	Manifest *Manifest

	// ManifestPath is where the manifest was written.
	ManifestPath string

	// HistoryID is the database id of the recorded run, 0 when not recorded.
	HistoryID int64

	// PerformedSteps lists the names of completed steps in order.
	PerformedSteps []string
}

// NewRun creates a Run for a start URL and output directory.
func NewRun(startURL, outputDir string) *Run {
	return &Run{
		StartURL:  startURL,
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}
}
