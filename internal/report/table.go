package report

import (
	"fmt"
	"io"

	"github.com/rodaine/table"

	"github.com/nao1215/topiccrawl/internal/model"
)

// maxTitleWidth truncates long titles in terminal output.
const maxTitleWidth = 48

// TableWriter outputs summaries as an aligned plain-text table.
type TableWriter struct {
	baseWriter
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer) *TableWriter {
	return &TableWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs a header line followed by one row per record.
func (w *TableWriter) Write(summary *model.CrawlSummary) (int, error) {
	cw := &countingWriter{w: w.output}

	if _, err := fmt.Fprintf(cw, "%s: %s (%d total, %d queued, %d completed)\n\n",
		summary.BaseURL, summary.Status, summary.Total, summary.Queued, summary.Completed); err != nil {
		return cw.n, err
	}

	if len(summary.Records) == 0 {
		_, err := fmt.Fprintln(cw, "No records.")
		return cw.n, err
	}

	tbl := table.New("URL", "Depth", "Status", "Topic", "Title").WithWriter(cw)
	for _, r := range summary.Records {
		tbl.AddRow(r.URL, r.Depth, r.Status, r.Topic, truncate(titleOf(r), maxTitleWidth))
	}
	tbl.Print()

	return cw.n, nil
}

// truncate shortens s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
