// Package api exposes the crawler over a small JSON HTTP API.
//
// Routes:
//
//	POST /scrape    sequential crawl of one root
//	POST /ascrape   concurrent crawl of one root
//	GET  /status    crawl status of a root
//	GET  /results   every record of a root
//	GET  /topics    active label set
//	POST /topics    replace the label set
//	GET  /health    liveness
//
// Crawls run on the request context, so a client that disconnects stops its
// crawl; the rows it leaves queued are resumed by the next request with
// start_fresh set to false.
package api
