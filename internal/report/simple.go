package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitesnap/internal/model"
	"github.com/nao1215/sitesnap/internal/snapshot"
)

// rulerWidth is the width of section rulers in text output.
const rulerWidth = 70

// SimpleWriter outputs plain text for terminals and pipes.
// A manifest is printed as a "STATUS PATH" listing framed by "#" comment
// lines, so the output can be diffed between crawls or filtered with grep.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...WriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(&w.baseWriter)
	}

	return w
}

// Write outputs the crawl listing and per-status summary.
func (w *SimpleWriter) Write(m *model.Manifest) (int, error) {
	var sb strings.Builder

	w.writeListing(&sb, m)
	w.writeSummary(&sb, m)
	w.writeLocations(&sb, m)

	return w.output.Write([]byte(sb.String()))
}

// writeListing writes the header comments and one line per page.
func (w *SimpleWriter) writeListing(sb *strings.Builder, m *model.Manifest) {
	sb.WriteString("# Site Crawl Results\n")
	fmt.Fprintf(sb, "# Crawled: %s\n", m.CrawledAt.UTC().Format(model.TimestampLayout))
	fmt.Fprintf(sb, "# Base URL: %s\n", m.BaseURL)
	fmt.Fprintf(sb, "# Total URLs: %d\n", m.TotalPages)
	sb.WriteString("#\n")
	sb.WriteString("# Format: STATUS_CODE PATH\n")
	sb.WriteString("#\n")

	for _, p := range m.Pages {
		fmt.Fprintf(sb, "%s %s\n", p.Status, p.Path)
	}
}

// writeSummary writes the count per status code.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, m *model.Manifest) {
	sb.WriteString("#\n")
	sb.WriteString("# Summary:\n")
	for _, sc := range m.Summary().ByStatus {
		fmt.Fprintf(sb, "#   %s: %d\n", sc.Status, sc.Count)
	}
}

// writeLocations writes where the artifacts went, when the directory is known.
func (w *SimpleWriter) writeLocations(sb *strings.Builder, m *model.Manifest) {
	if w.artifactDir == "" {
		return
	}

	s := m.Summary()
	fmt.Fprintf(sb, "\nDone! Captured %d pages (%d saved, %d skipped, %d failed).\n",
		s.Total, s.Saved, s.Skipped, s.Failed)
	fmt.Fprintf(sb, "  HTML: %s%c\n", filepath.Join(w.artifactDir, snapshot.HTMLDir), filepath.Separator)
	fmt.Fprintf(sb, "  Screenshots: %s%c\n", filepath.Join(w.artifactDir, snapshot.ScreenshotDir), filepath.Separator)
	fmt.Fprintf(sb, "  Manifest: %s\n", filepath.Join(w.artifactDir, ManifestFile))
}

// WriteDiff outputs a manifest comparison.
func (w *SimpleWriter) WriteDiff(d *Diff) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", rulerWidth))
	sb.WriteString("\n")
	sb.WriteString("                       MANIFEST COMPARISON\n")
	sb.WriteString(strings.Repeat("=", rulerWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "A: %s (%s)\n", d.BaseA, d.CrawledA.UTC().Format(model.TimestampLayout))
	fmt.Fprintf(&sb, "B: %s (%s)\n\n", d.BaseB, d.CrawledB.UTC().Format(model.TimestampLayout))

	w.writePages(&sb, "ONLY IN A", d.OnlyInA)
	w.writePages(&sb, "ONLY IN B", d.OnlyInB)

	writeSection(&sb, fmt.Sprintf("STATUS CHANGES (%d)", len(d.StatusChanges)))
	if len(d.StatusChanges) == 0 {
		sb.WriteString("  None\n")
	}
	for _, c := range d.StatusChanges {
		fmt.Fprintf(&sb, "  %s: %s -> %s\n", c.Path, c.Before, c.After)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Unchanged: %d\n", d.Unchanged)
	if !d.HasChanges() {
		sb.WriteString("No differences found.\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// writePages writes a titled list of pages.
func (w *SimpleWriter) writePages(sb *strings.Builder, title string, pages []model.PageResult) {
	writeSection(sb, fmt.Sprintf("%s (%d)", title, len(pages)))
	if len(pages) == 0 {
		sb.WriteString("  None\n")
	}
	for _, p := range pages {
		fmt.Fprintf(sb, "  %s %s\n", p.Status, p.Path)
	}
	sb.WriteString("\n")
}

// writeSection writes a section title between rulers.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", rulerWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", rulerWidth))
	sb.WriteString("\n")
}
