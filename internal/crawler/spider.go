package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nao1215/sitesnap/internal/canon"
	"github.com/nao1215/sitesnap/internal/fetcher"
	"github.com/nao1215/sitesnap/internal/model"
)

// ErrUnsupportedScheme is returned when the start URL is not http or https.
var ErrUnsupportedScheme = errors.New("start URL must use http or https")

// Saver persists the artifacts of one successfully fetched HTML page.
type Saver interface {
	Save(result model.PageResult, html, screenshot []byte) error
}

// Spider crawls one origin breadth-first, one fetch at a time.
// Its per-run state lives in Crawl, so a Spider can run several crawls
// one after another.
type Spider struct {
	fetcher   fetcher.Fetcher
	extractor Extractor
	saver     Saver

	logger   *slog.Logger
	progress io.Writer
	maxPages int
	limiter  *Limiter
	robots   *RobotsAgent
	paths    *PathFilter
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithProgress writes a running "Crawled: N pages, Queue: M" line to w.
func WithProgress(w io.Writer) SpiderOption {
	return func(s *Spider) {
		s.progress = w
	}
}

// WithMaxPages stops the crawl after n fetches. 0 means no limit.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithLimiter spaces fetches with l.
func WithLimiter(l *Limiter) SpiderOption {
	return func(s *Spider) {
		s.limiter = l
	}
}

// WithRobots skips discovered URLs disallowed by robots.txt.
func WithRobots(a *RobotsAgent) SpiderOption {
	return func(s *Spider) {
		s.robots = a
	}
}

// WithPathFilter skips discovered URLs whose path is refused by p.
func WithPathFilter(p *PathFilter) SpiderOption {
	return func(s *Spider) {
		s.paths = p
	}
}

// NewSpider creates a Spider. The extractor must match the fetcher:
// DOMExtractor for BrowserFetcher, RegexExtractor or HTMLExtractor for
// HTTPFetcher.
func NewSpider(f fetcher.Fetcher, extractor Extractor, saver Saver, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:   f,
		extractor: extractor,
		saver:     saver,
		logger:    slog.Default(),
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl fetches every same-origin URL reachable from startURL exactly once
// and returns one result per fetch, in fetch order.
//
// The returned error is non-nil only when startURL is unusable, the Saver
// fails or ctx is canceled; the results gathered so far are returned with it.
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]model.PageResult, error) {
	seed, err := canon.Canonicalize(startURL, "")
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if !strings.HasPrefix(seed, "http://") && !strings.HasPrefix(seed, "https://") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, startURL)
	}
	origin, err := canon.Origin(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}

	logger := s.logger.With("origin", origin, "extractor", s.extractor.Name())
	logger.Info("crawl started", "seed", seed)

	frontier := NewFrontier()
	frontier.Push(seed)
	results := make([]model.PageResult, 0)
	defer s.endProgress()

	for frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if s.maxPages > 0 && len(results) >= s.maxPages {
			logger.Info("page limit reached", "max_pages", s.maxPages, "queued", frontier.Len())
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return results, err
		}

		key, _ := frontier.Pop()
		out := s.fetcher.Fetch(ctx, key)
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, links, err := s.handle(key, origin, out)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		logger.Debug("page done",
			"url", key,
			"status", result.Status.String(),
			"outcome", result.Outcome(),
			"links", len(links),
		)

		for _, link := range links {
			if frontier.Visited(link) || !s.admit(ctx, link) {
				continue
			}
			frontier.Push(link)
		}

		s.reportProgress(len(results), frontier.Len())
	}

	logger.Info("crawl finished",
		"pages", len(results),
		"visited", frontier.VisitedCount(),
	)
	return results, nil
}

// handle turns one fetch outcome into a result and the links it leads to.
func (s *Spider) handle(key, origin string, out fetcher.Outcome) (model.PageResult, []string, error) {
	result := model.PageResult{
		Path: canon.Path(key),
		URL:  key,
	}

	switch out.Kind {
	case fetcher.KindFailure:
		result.Status = model.StatusError
		result.Error = errorText(out.Err)
		s.logger.Warn("fetch failed", "url", key, "error", result.Error)
		return result, nil, nil

	case fetcher.KindRedirect:
		result.Status = model.Status(out.StatusCode)
		result.RedirectTarget = out.Target
		result.Skipped = model.SkipRedirect
		return result, FilterLinks([]string{out.Target}, key, origin), nil
	}

	result.Status = model.Status(out.StatusCode)
	result.ContentType = out.ContentType

	switch {
	case !out.OK():
		result.Skipped = model.SkipHTTPStatus(out.StatusCode)
		return result, nil, nil
	case !out.IsHTML():
		result.Skipped = model.SkipNotHTML
		return result, nil, nil
	}

	links := FilterLinks(s.extractor.References(out), key, origin)
	result.Title = PageTitle(out.Body)
	result.Digest = model.Digest(out.Body)

	if err := s.saver.Save(result, out.Body, out.Screenshot); err != nil {
		return result, nil, fmt.Errorf("save %s: %w", key, err)
	}
	result.Saved = true

	return result, links, nil
}

// admit applies the optional robots and path gates to a discovered URL.
func (s *Spider) admit(ctx context.Context, link string) bool {
	if !s.paths.Allow(link) {
		s.logger.Debug("skipped by pattern", "url", link)
		return false
	}
	if s.robots != nil && !s.robots.Allowed(ctx, link) {
		s.logger.Debug("skipped by robots.txt", "url", link)
		return false
	}
	return true
}

func (s *Spider) reportProgress(crawled, queued int) {
	fmt.Fprintf(s.progress, "\rCrawled: %d pages, Queue: %d   ", crawled, queued)
}

func (s *Spider) endProgress() {
	fmt.Fprintln(s.progress)
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
