package report

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitesnap/internal/model"
	"github.com/nao1215/sitesnap/internal/snapshot"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs crawl summaries in Markdown format, for pull
// request comments and documentation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...WriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(&w.baseWriter)
	}

	return w
}

// Write outputs the manifest as Markdown.
func (w *MarkdownWriter) Write(m *model.Manifest) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := m.Summary()

	w.writeHeader(md, m, summary)
	w.writeStatusSummary(md, summary)
	w.writePages(md, m.Pages)
	w.writeArtifacts(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the crawl information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, m *model.Manifest, s model.Summary) {
	md.H1("Site Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + m.BaseURL + "`"},
			{"Crawled", m.CrawledAt.UTC().Format(model.TimestampLayout)},
			{"Total Pages", strconv.Itoa(m.TotalPages)},
			{"Saved", strconv.Itoa(s.Saved)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Redirects", strconv.Itoa(s.Redirects)},
			{"Failed", strconv.Itoa(s.Failed)},
		},
	})
	md.PlainText("")
}

// writeStatusSummary writes the count per status with a pie chart.
func (w *MarkdownWriter) writeStatusSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Status Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(s.ByStatus))
	for _, sc := range s.ByStatus {
		rows = append(rows, []string{sc.Status.String(), strconv.Itoa(sc.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Status Distribution"),
			piechart.WithShowData(true),
		)
		for _, sc := range s.ByStatus {
			chart.LabelAndIntValue(sc.Status.String(), uint64(sc.Count)) //nolint:gosec // counts are never negative
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	broken := brokenCount(s)
	switch {
	case s.Failed > 0:
		md.Warningf("%d page(s) could not be fetched.", s.Failed)
	case broken > 0:
		md.Importantf("%d page(s) answered with a client or server error.", broken)
	case s.Total == 0:
		md.Note("No pages were recorded.")
	default:
		md.Tip("No broken links found.")
	}
	md.PlainText("")
}

// brokenCount counts results with a 4xx or 5xx status.
func brokenCount(s model.Summary) int {
	n := 0
	for _, sc := range s.ByStatus {
		if sc.Status >= 400 {
			n += sc.Count
		}
	}
	return n
}

// writePages writes one table row per page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []model.PageResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No pages recorded.")
		md.PlainText("")
		return
	}

	title := cases.Title(language.English)
	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			p.Status.String(),
			"`" + cell(p.Path) + "`",
			title.String(p.Outcome()),
			cell(truncateString(details(p), 60)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Path", "Outcome", "Details"},
		Rows:   rows,
	})
	md.PlainText("")
}

// details returns the most useful extra text for a page row.
func details(p model.PageResult) string {
	switch {
	case p.Error != "":
		return p.Error
	case p.RedirectTarget != "":
		return "-> " + p.RedirectTarget
	case p.Skipped != "":
		return p.Skipped
	case p.Title != "":
		return p.Title
	default:
		return "-"
	}
}

// writeArtifacts lists the artifact locations.
func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown) {
	if w.artifactDir == "" {
		return
	}

	md.H2("Artifacts")
	md.PlainText("")
	md.BulletList(
		"HTML: `"+filepath.Join(w.artifactDir, snapshot.HTMLDir)+"`",
		"Screenshots: `"+filepath.Join(w.artifactDir, snapshot.ScreenshotDir)+"`",
		"Manifest: `"+filepath.Join(w.artifactDir, ManifestFile)+"`",
	)
	md.PlainText("")
}

// WriteDiff outputs a manifest comparison as Markdown.
func (w *MarkdownWriter) WriteDiff(d *Diff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Manifest Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Base URL", "Crawled"},
		Rows: [][]string{
			{"A", "`" + d.BaseA + "`", d.CrawledA.UTC().Format(model.TimestampLayout)},
			{"B", "`" + d.BaseB + "`", d.CrawledB.UTC().Format(model.TimestampLayout)},
		},
	})
	md.PlainText("")

	if !d.HasChanges() {
		md.Tip("No differences found.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Change", "Count"},
		Rows: [][]string{
			{"Only in A", strconv.Itoa(len(d.OnlyInA))},
			{"Only in B", strconv.Itoa(len(d.OnlyInB))},
			{"Status changed", strconv.Itoa(len(d.StatusChanges))},
			{"Unchanged", strconv.Itoa(d.Unchanged)},
		},
	})
	md.PlainText("")

	w.writeDiffPages(md, "Only in A", d.OnlyInA)
	w.writeDiffPages(md, "Only in B", d.OnlyInB)

	if len(d.StatusChanges) > 0 {
		md.H2("Status Changes")
		md.PlainText("")
		rows := make([][]string, len(d.StatusChanges))
		for i, c := range d.StatusChanges {
			rows[i] = []string{"`" + cell(c.Path) + "`", c.Before.String(), c.After.String()}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Path", "A", "B"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// writeDiffPages writes a section listing pages present on one side only.
func (w *MarkdownWriter) writeDiffPages(md *markdown.Markdown, heading string, pages []model.PageResult) {
	if len(pages) == 0 {
		return
	}

	md.H2(heading)
	md.PlainText("")
	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{"`" + cell(p.Path) + "`", p.Status.String()}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Path", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// cell escapes pipes so text cannot break a table row.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
