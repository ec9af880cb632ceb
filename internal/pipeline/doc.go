// Package pipeline runs one crawl as a sequence of steps.
//
// The crawl command builds a Pipeline from PrepareStep, CrawlStep,
// ManifestStep and, unless history is disabled, HistoryStep. Each step
// receives the same model.Run and fills in its part: the output
// directories, the page results, the manifest, and the history id.
//
// Execute checks the context before every step, so an interrupt during the
// crawl stops the run before a manifest is written.
package pipeline
