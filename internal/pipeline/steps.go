package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitesnap/internal/canon"
	"github.com/nao1215/sitesnap/internal/model"
	"github.com/nao1215/sitesnap/internal/report"
)

// Preparer creates the output directory layout.
type Preparer interface {
	Prepare() error
}

// Crawler produces the page results for a start URL.
type Crawler interface {
	Crawl(ctx context.Context, startURL string) ([]model.PageResult, error)
}

// Recorder stores a finished run.
type Recorder interface {
	SaveRun(ctx context.Context, m *model.Manifest, outputDir string) (int64, error)
}

// PrepareStep creates html/ and screenshots/ before anything is fetched,
// so an unwritable output directory fails the run up front.
type PrepareStep struct {
	preparer Preparer
}

// NewPrepareStep creates a PrepareStep.
func NewPrepareStep(p Preparer) *PrepareStep {
	return &PrepareStep{preparer: p}
}

// Name returns the step name.
func (s *PrepareStep) Name() string {
	return "prepare"
}

// Do executes the prepare step.
func (s *PrepareStep) Do(_ context.Context, _ *model.Run) error {
	if err := s.preparer.Prepare(); err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}
	return nil
}

// CrawlStep runs the crawler from the run's start URL.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(c Crawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	base, err := canon.Canonicalize(run.StartURL, "")
	if err != nil {
		return err
	}
	run.BaseURL = base

	results, err := s.crawler.Crawl(ctx, run.StartURL)
	run.Results = results
	return err
}

// ManifestStep sorts the results into a manifest and writes manifest.json.
type ManifestStep struct {
	now func() time.Time
}

// ManifestStepOption configures a ManifestStep.
type ManifestStepOption func(*ManifestStep)

// WithClock sets the time source for crawledAt.
func WithClock(now func() time.Time) ManifestStepOption {
	return func(s *ManifestStep) {
		s.now = now
	}
}

// NewManifestStep creates a ManifestStep.
func NewManifestStep(opts ...ManifestStepOption) *ManifestStep {
	s := &ManifestStep{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ManifestStep) Name() string {
	return "manifest"
}

// Do executes the manifest step.
func (s *ManifestStep) Do(_ context.Context, run *model.Run) error {
	m := model.NewManifest(s.now(), run.StartURL, run.Results)

	path, err := report.WriteManifest(run.OutputDir, m)
	if err != nil {
		return err
	}
	run.Manifest = m
	run.ManifestPath = path
	return nil
}

// HistoryStep records the run in the history database. A failure to record
// is logged and does not fail the crawl, since the artifacts are already
// on disk.
type HistoryStep struct {
	recorder Recorder
	logger   *slog.Logger
}

// HistoryStepOption configures a HistoryStep.
type HistoryStepOption func(*HistoryStep)

// WithHistoryLogger sets a custom logger for the history step.
func WithHistoryLogger(logger *slog.Logger) HistoryStepOption {
	return func(s *HistoryStep) {
		s.logger = logger
	}
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(r Recorder, opts ...HistoryStepOption) *HistoryStep {
	s := &HistoryStep{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, run *model.Run) error {
	if run.Manifest == nil {
		return nil
	}

	id, err := s.recorder.SaveRun(ctx, run.Manifest, run.OutputDir)
	if err != nil {
		s.logger.Warn("failed to record crawl history", "url", run.StartURL, "error", err)
		return nil
	}

	run.HistoryID = id
	s.logger.Info("crawl recorded in history", "url", run.StartURL, "id", id)
	return nil
}
