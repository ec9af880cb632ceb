// Package snapshot persists the artifact pair of a crawled HTML page:
// its markup under html/<name>.html and its full-page raster under
// screenshots/<name>.png, where <name> comes from canon.Filename.
//
// Writes overwrite existing files, so re-running a crawl into the same
// directory replaces the previous artifacts.
package snapshot
