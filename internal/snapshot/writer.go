package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/sitesnap/internal/canon"
	"github.com/nao1215/sitesnap/internal/model"
)

// Directory and file names inside the output directory.
const (
	HTMLDir       = "html"
	ScreenshotDir = "screenshots"
	HTMLExt       = ".html"
	ScreenshotExt = ".png"
)

const (
	dirPerm  = 0750
	filePerm = 0600
)

// ErrNotHTML is returned by Save for a result whose content type is not HTML.
var ErrNotHTML = errors.New("not an HTML page")

// Writer writes artifacts below one output directory.
type Writer struct {
	dir    string
	pretty bool
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithPretty inserts line breaks between tags before the markup is written.
func WithPretty(pretty bool) Option {
	return func(w *Writer) {
		w.pretty = pretty
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter returns a Writer for dir. Call Prepare before the first Save.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Prepare creates the output directory and its html/ and screenshots/ subdirectories.
func (w *Writer) Prepare() error {
	for _, d := range []string{w.HTMLDir(), w.ScreenshotDir()} {
		if err := os.MkdirAll(d, dirPerm); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}

// HTMLDir returns the markup directory.
func (w *Writer) HTMLDir() string {
	return filepath.Join(w.dir, HTMLDir)
}

// ScreenshotDir returns the raster directory.
func (w *Writer) ScreenshotDir() string {
	return filepath.Join(w.dir, ScreenshotDir)
}

// HTMLPath returns where the markup of a canonical URL is written.
func (w *Writer) HTMLPath(key string) string {
	return filepath.Join(w.HTMLDir(), canon.Filename(key)+HTMLExt)
}

// ScreenshotPath returns where the raster of a canonical URL is written.
func (w *Writer) ScreenshotPath(key string) string {
	return filepath.Join(w.ScreenshotDir(), canon.Filename(key)+ScreenshotExt)
}

// Save writes the markup and, when present, the raster of one page.
// An empty screenshot writes the markup only.
func (w *Writer) Save(result model.PageResult, html, screenshot []byte) error {
	if !model.IsHTMLContentType(result.ContentType) {
		return fmt.Errorf("%w: %s (%s)", ErrNotHTML, result.URL, result.ContentType)
	}

	if w.pretty {
		html = PrettyPrint(html)
	}

	htmlPath := w.HTMLPath(result.URL)
	if err := os.WriteFile(htmlPath, html, filePerm); err != nil {
		return fmt.Errorf("failed to write markup: %w", err)
	}

	if len(screenshot) > 0 {
		if err := os.WriteFile(w.ScreenshotPath(result.URL), screenshot, filePerm); err != nil {
			return fmt.Errorf("failed to write screenshot: %w", err)
		}
	}

	w.logger.Debug("snapshot saved", "url", result.URL, "html", htmlPath, "screenshot", len(screenshot) > 0)
	return nil
}
