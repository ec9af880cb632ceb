// Package database records crawl history in SQLite.
//
// Each crawl run is stored as one row in runs with its counts, and one row
// per page in pages, including the SHA3-256 digest of the saved markup. The
// history command lists runs per base URL and the digests show which pages
// changed between two runs without opening the snapshot files.
//
// The store uses modernc.org/sqlite, a CGO-free driver, with WAL enabled
// and a single connection.
package database
