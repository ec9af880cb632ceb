// Package crawler walks every same-origin page reachable from a start URL.
//
// # Architecture
//
// The Spider drives a single cooperative loop over a Frontier: dequeue a
// canonical URL, fetch it, record a model.PageResult, hand HTML pages to
// the Saver, and push newly discovered same-origin links back into the
// Frontier. One fetch is in flight at a time and the queue is strictly
// FIFO, so traversal is breadth-first.
//
// # Components
//
//   - Spider: the orchestrator
//   - Frontier: the visited set and pending queue of one run
//   - Extractor: produces raw references from a fetched page
//     (RegexExtractor, HTMLExtractor, DOMExtractor)
//   - FilterLinks: turns raw references into canonical same-origin URLs
//   - RobotsAgent, Limiter, PathFilter: optional politeness gates
//
// # Usage
//
//	spider := crawler.NewSpider(f, crawler.NewRegexExtractor(), writer,
//		crawler.WithProgress(os.Stderr))
//	results, err := spider.Crawl(ctx, "http://example.com/")
//
// Per-URL failures become results with the ERROR status. Crawl only
// returns an error for a bad start URL, a Saver failure or a canceled
// context.
package crawler
