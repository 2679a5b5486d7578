package report

import (
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/topiccrawl/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeAlert(md, summary)
	w.writeTopics(md, summary)
	w.writePages(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and the crawl counters.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + summary.BaseURL + "`"},
			{"Status", summary.Status.String()},
			{"Total URLs", strconv.Itoa(summary.Total)},
			{"Queued", strconv.Itoa(summary.Queued)},
			{"Completed", strconv.Itoa(summary.Completed)},
		},
	})
	md.PlainText("")
}

// writeAlert writes a note that matches the crawl status.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.CrawlSummary) {
	switch summary.Status {
	case model.CrawlInterrupted:
		md.Warningf(
			"%d URL(s) are still queued. Run the crawl again without --fresh to resume it.",
			summary.Queued,
		)
	case model.CrawlNotStarted:
		md.Note("No crawl has been recorded for this base URL.")
	default:
		md.Tip("The crawl is complete.")
	}
	md.PlainText("")
}

// writeTopics writes the topic distribution of completed pages.
func (w *MarkdownWriter) writeTopics(md *markdown.Markdown, summary *model.CrawlSummary) {
	counts := summary.TopicCounts()
	if len(counts) == 0 {
		return
	}

	md.H2("Topics")
	md.PlainText("")

	topics := slices.Sorted(maps.Keys(counts))
	rows := make([][]string, 0, len(topics))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Topic"),
		piechart.WithShowData(true),
	)
	for _, topic := range topics {
		rows = append(rows, []string{topic, strconv.Itoa(counts[topic])})
		chart.LabelAndIntValue(topic, uint64(counts[topic])) //nolint:gosec // counts are never negative
	}

	md.Table(markdown.TableSet{
		Header: []string{"Topic", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes one table row per record.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, summary *model.CrawlSummary) {
	md.H2("Pages")
	md.PlainText("")

	if len(summary.Records) == 0 {
		md.PlainText("No pages recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Records))
	for _, r := range summary.Records {
		rows = append(rows, []string{
			escapeCell(r.URL),
			strconv.Itoa(r.Depth),
			r.Status.String(),
			r.Topic,
			escapeCell(titleOf(r)),
			strconv.Itoa(len(r.LinksToTexts)),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Status", "Topic", "Title", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

// escapeCell keeps pipes and newlines from breaking a table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
