// Package report renders crawl summaries.
//
// Writers implement the Writer interface and are selected by Format:
//   - TableWriter: aligned plain text for terminals
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a topic chart for sharing
//
// The data itself is built by frontier.Summary; this package only formats it.
package report
