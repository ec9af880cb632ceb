package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitesnap/internal/model"
)

// createTestManifest creates a manifest with one result of each kind.
func createTestManifest() *model.Manifest {
	pages := []model.PageResult{
		{Path: "/old", URL: "http://x/old", Status: 302, RedirectTarget: "http://x/new", Skipped: model.SkipRedirect},
		{Path: "/", URL: "http://x/", Status: 200, ContentType: "text/html", Title: "Home | X", Saved: true},
		{Path: "/down", URL: "http://x/down", Status: model.StatusError, Error: "timeout: deadline exceeded"},
		{Path: "/logo.png", URL: "http://x/logo.png", Status: 200, ContentType: "image/png", Skipped: model.SkipNotHTML},
		{Path: "/missing", URL: "http://x/missing", Status: 404, Skipped: model.SkipHTTPStatus(404)},
		{Path: "/new", URL: "http://x/new", Status: 200, ContentType: "text/html", Saved: true},
	}
	return model.NewManifest(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "http://x/", pages)
}

// TestNew tests writer selection by format name.
func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{format: "text", want: "*report.SimpleWriter"},
		{format: "", want: "*report.SimpleWriter"},
		{format: "JSON", want: "*report.JSONWriter"},
		{format: "markdown", want: "*report.MarkdownWriter"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			w, err := New(tt.format, &bytes.Buffer{}, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch w.(type) {
			case *SimpleWriter:
				if tt.want != "*report.SimpleWriter" {
					t.Errorf("expected %s, got *report.SimpleWriter", tt.want)
				}
			case *JSONWriter:
				if tt.want != "*report.JSONWriter" {
					t.Errorf("expected %s, got *report.JSONWriter", tt.want)
				}
			case *MarkdownWriter:
				if tt.want != "*report.MarkdownWriter" {
					t.Errorf("expected %s, got *report.MarkdownWriter", tt.want)
				}
			}
		})
	}

	t.Run("rejects unknown format", func(t *testing.T) {
		t.Parallel()

		_, err := New("xml", &bytes.Buffer{}, "")
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}

// TestSimpleWriter tests the text listing.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes listing sorted by path", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestManifest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := strings.Join([]string{
			"# Site Crawl Results",
			"# Crawled: 2026-01-02T03:04:05.000Z",
			"# Base URL: http://x/",
			"# Total URLs: 6",
			"#",
			"# Format: STATUS_CODE PATH",
			"#",
			"200 /",
			"ERROR /down",
			"200 /logo.png",
			"404 /missing",
			"200 /new",
			"302 /old",
			"#",
			"# Summary:",
			"#   200: 3",
			"#   302: 1",
			"#   404: 1",
			"#   ERROR: 1",
			"",
		}, "\n")
		if buf.String() != want {
			t.Errorf("unexpected listing:\n%s\nexpected:\n%s", buf.String(), want)
		}
	})

	t.Run("writes artifact locations", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithArtifactDir("out"))
		if _, err := w.Write(createTestManifest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, s := range []string{
			"Done! Captured 6 pages (2 saved, 3 skipped, 1 failed).",
			"HTML: out/html/",
			"Screenshots: out/screenshots/",
			"Manifest: out/manifest.json",
		} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q, got:\n%s", s, output)
			}
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		a := createTestManifest()
		b := model.NewManifest(a.CrawledAt, "http://y/", []model.PageResult{
			{Path: "/", URL: "http://y/", Status: 200},
			{Path: "/missing", URL: "http://y/missing", Status: 200},
			{Path: "/extra", URL: "http://y/extra", Status: 200},
		})

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteDiff(Compare(a, b)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, s := range []string{
			"MANIFEST COMPARISON",
			"ONLY IN A (4)",
			"ONLY IN B (1)",
			"  200 /extra",
			"/missing: 404 -> 200",
			"Unchanged: 1",
		} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q, got:\n%s", s, output)
			}
		}
	})

	t.Run("reports identical manifests", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		m := createTestManifest()
		if _, err := NewSimpleWriter(&buf).WriteDiff(Compare(m, m)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No differences found.") {
			t.Errorf("expected no-difference message, got:\n%s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown summary.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf, WithArtifactDir("out")).Write(createTestManifest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero byte count")
		}

		output := buf.String()
		for _, s := range []string{
			"# Site Crawl Report",
			"## Status Summary",
			"```mermaid",
			"Status Distribution",
			"## Pages",
			"Saved",
			"Skipped",
			"Redirects",
			"-> http://x/new",
			`Home \| X`,
			"## Artifacts",
			"1 page(s) could not be fetched.",
		} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q", s)
			}
		}
	})

	t.Run("writes tip when nothing is broken", func(t *testing.T) {
		t.Parallel()

		m := model.NewManifest(time.Now(), "http://x/", []model.PageResult{
			{Path: "/", URL: "http://x/", Status: 200, Saved: true},
		})

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No broken links found.") {
			t.Errorf("expected tip, got:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "## Artifacts") {
			t.Error("expected no artifacts section without a directory")
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		a := createTestManifest()
		b := model.NewManifest(a.CrawledAt, "http://x/", a.Pages[:2])

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteDiff(Compare(a, b)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "# Manifest Comparison") {
			t.Error("expected comparison heading")
		}
		if !strings.Contains(output, "## Only in A") {
			t.Error("expected only-in-A section")
		}
		if strings.Contains(output, "## Only in B") {
			t.Error("expected no only-in-B section")
		}
	})
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("expected short, got %q", got)
	}
	if got := truncateString("abcdefghij", 6); got != "abc..." {
		t.Errorf("expected abc..., got %q", got)
	}
	if got := truncateString("日本語のタイトル", 5); got != "日本..." {
		t.Errorf("expected 日本..., got %q", got)
	}
}
