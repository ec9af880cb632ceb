package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be tested with
// errors.Is().
var (
	// ErrNoTarget is returned when no start URL is given.
	ErrNoTarget = errors.New("no target specified: provide a start URL")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrInvalidMode is returned for a fetch mode other than raw or rendered.
	ErrInvalidMode = errors.New("invalid mode: must be raw or rendered")

	// ErrInvalidParser is returned for a link parser other than regex or html.
	ErrInvalidParser = errors.New("invalid parser: must be regex or html")

	// ErrInvalidFormat is returned for an unknown summary format.
	ErrInvalidFormat = errors.New("invalid format: must be text, json or markdown")

	// ErrInvalidTimeout is returned when the timeout is negative.
	// Zero selects the default for the mode.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidSettle is returned when the settle time is negative.
	ErrInvalidSettle = errors.New("invalid settle time: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Zero means no limit.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidViewport is returned for a viewport that is not WIDTHxHEIGHT
	// with positive dimensions.
	ErrInvalidViewport = errors.New("invalid viewport: must be WIDTHxHEIGHT with positive values")
)
