// Package report writes and reads crawl manifests and renders them for
// people.
//
// Writers for the supported output formats:
//   - JSONWriter: the manifest itself, and comparison results as JSON
//   - SimpleWriter: the STATUS PATH listing with per-status counts
//   - MarkdownWriter: summary tables with a mermaid status chart
//
// WriteManifest and ReadManifest handle the manifest.json file in an output
// directory. Compare reports how two manifests differ.
//
// Writers implement the Writer interface, so the crawl and compare commands
// pick one by format name and use it the same way.
package report
