// Package crawler provides the resumable, depth-bounded crawl engine.
//
// # Architecture
//
// The Spider type coordinates a crawl. Every discovered URL is written to a
// frontier.Store as queued before it is fetched, and flipped to completed
// afterwards, so a crawl that dies half way can be resumed from the rows that
// are still queued.
//
// Two orchestrators share the same store contract:
//
//   - Scrape walks a FIFO work list one page at a time.
//   - ScrapeConcurrent processes the crawl level by level. All pages at depth
//     d finish before any page at depth d+1 starts, and at most
//     maxConcurrency pages are in flight.
//
// Both fetch a URL at most once per call and never fetch beyond the maximum
// depth.
//
// # Components
//
//   - Spider: the crawl engine and its per-call session state
//   - Fetcher: HTTP retrieval with decompression, charset decoding and an
//     optional per-host rate limit
//   - Parser: title, paragraph text and outbound link extraction
//   - BatchProcessor: crawls several roots at once
//
// # Failure policy
//
// A failed fetch, a non-HTML response or a panic inside one concurrent unit
// is recorded as a completed page without content. A store error aborts the
// crawl; rows already written remain valid for a later resume.
//
// # Usage
//
//	fetcher, err := crawler.NewHTTPFetcher(crawler.FetcherOptions{})
//	if err != nil {
//		return err
//	}
//	spider := crawler.NewSpider(store, fetcher, crawler.WithDelay(time.Second))
//	scraped, err := spider.ScrapeConcurrent(ctx, "https://example.com", 2, 8, false)
package crawler
