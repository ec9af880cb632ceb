// Package canon normalizes URLs into the stable keys used for crawl
// deduplication and artifact file names.
//
// A canonical URL keeps only scheme, host, port and path. The fragment and
// query are dropped, scheme and host are lowercased, default ports are
// removed, and trailing slashes are trimmed everywhere except on the origin
// root. Canonicalize is idempotent: feeding its output back in returns the
// same string.
//
// # Usage
//
//	key, err := canon.Canonicalize("about/#team", "http://example.com/")
//	// key == "http://example.com/about"
//	name := canon.Filename(key)
//	// name == "about"
package canon
