// Package transport builds the HTTP clients used by the raw fetcher.
//
// Clients never follow redirects: a 3xx response is handed back to the
// caller so the crawler can record it and enqueue the target itself.
// Every request carries the configured user agent, extra headers and
// cookie. An optional SOCKS5 proxy routes all connections.
//
// The package is designed to be used with dependency injection: create a
// Client once per run and pass it to the fetcher.
package transport
