// Package fetcher retrieves one URL and reports what happened.
//
// Two implementations share the Fetcher interface:
//   - HTTPFetcher issues a plain GET and returns the body verbatim.
//   - BrowserFetcher loads the page in headless Chrome, waits for the
//     network to go idle and returns the rendered document, its anchors
//     and a full-page PNG.
//
// A fetch never returns an error. Its Outcome is a Success, a Redirect
// or a Failure; failures wrap ErrTimeout, ErrNetwork or
// ErrMalformedResponse. Both fetchers are meant to be used by one
// goroutine at a time and reused across fetches.
package fetcher
