package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/topiccrawl/internal/model"
)

// ErrUnknownFormat is returned by ParseFormat and NewWriter for an
// unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Format names an output format.
type Format string

const (
	// FormatTable is a plain-text table for terminals.
	FormatTable Format = "table"

	// FormatJSON is indented JSON for tool integration.
	FormatJSON Format = "json"

	// FormatMarkdown is GitHub-flavored Markdown for sharing.
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats in the order they are documented.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatMarkdown}
}

// ParseFormat converts a user-supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatTable, FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Writer defines the interface for report output.
// Implementations render a crawl summary in one format.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.CrawlSummary) (int, error)
}

// NewWriter returns the Writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatTable:
		return NewTableWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts the bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// titleOf returns the title of r or an empty string.
func titleOf(r model.URLRecord) string {
	if r.Title == nil {
		return ""
	}
	return *r.Title
}
