// Package frontier provides durable storage for the crawl frontier.
//
// The frontier is the set of URLs discovered while crawling a root URL,
// together with their lifecycle status (queued or completed), the page that
// linked to them, their depth and, once fetched, their title, outbound links
// and topic. A crash leaves queued rows behind; RecoverPending hands them back
// to the crawler on the next run.
//
// Three backends implement Store:
//   - SQLiteStore: a single local file (default), via modernc.org/sqlite
//   - PostgresStore: a shared PostgreSQL table, via pgx/v5
//   - MongoStore: a MongoDB collection, via mongo-driver
//
// All backends key rows by (base URL, URL). Enqueue never overwrites an
// existing row, so the first recorded depth and source URL stick and a
// completed row never reverts to queued.
package frontier
