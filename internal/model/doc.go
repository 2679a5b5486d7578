// Package model defines the core data structures used throughout topiccrawl.
//
// This package contains the following main types:
//   - URLRecord: One persisted frontier row per (crawl root, discovered URL)
//   - PendingURL: A queued work item recovered from the frontier
//   - CompletedPage: The content written back once a page has been fetched
//   - CrawlSummary: A status/results view of one crawl root
//
// The types live in their own package because the crawler, the frontier
// backends, the report writers and the HTTP API all share them.
package model
