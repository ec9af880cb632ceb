package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitesnap/internal/model"
)

// Output formats accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a crawl manifest.
	// Returns the number of bytes written and any error encountered.
	Write(m *model.Manifest) (int, error)

	// WriteDiff outputs the comparison of two manifests.
	WriteDiff(d *Diff) (int, error)
}

// New returns the Writer for a format name. outputDir is shown by the
// human-readable writers as the location of the crawl artifacts and may be
// empty.
func New(format string, output io.Writer, outputDir string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewSimpleWriter(output, WithArtifactDir(outputDir)), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output, WithArtifactDir(outputDir)), nil
	default:
		return nil, fmt.Errorf("%w: %q (use text, json or markdown)", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer

	// artifactDir is the crawl output directory shown in summaries.
	artifactDir string
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// WriterOption configures the human-readable writers.
type WriterOption func(*baseWriter)

// WithArtifactDir sets the output directory listed after the summary.
func WithArtifactDir(dir string) WriterOption {
	return func(w *baseWriter) {
		w.artifactDir = dir
	}
}
