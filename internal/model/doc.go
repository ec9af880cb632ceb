// Package model defines the data structures shared by the crawler, the
// snapshot writer, the report writers and the history database.
//
// This package contains the following main types:
//   - PageResult: the immutable record of one fetch attempt
//   - Status: an HTTP status code or the synthetic ERROR status
//   - Manifest: the structured report written at the end of a crawl
//   - Summary: counts per status and per outcome
//   - Run: the state handed between the steps of one crawl run
//
// The types live in their own package so that crawler, report and database
// can share them without import cycles. They serialize to the manifest.json
// wire format.
package model
