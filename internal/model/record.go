package model

// DefaultTopic is the topic label stored for records that have not been
// classified, and the fallback label of every classifier.
const DefaultTopic = "other"

// Status is the lifecycle state of a frontier record.
// A record only ever moves from StatusQueued to StatusCompleted.
type Status string

const (
	// StatusQueued marks a URL that has been discovered but not yet fetched.
	// A crash leaves in-flight URLs in this state so they can be resumed.
	StatusQueued Status = "queued"

	// StatusCompleted marks a URL whose fetch has finished, successfully or not.
	// Failed fetches are also completed so that a resume never retries them.
	StatusCompleted Status = "completed"
)

// String returns the stored representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return s == StatusQueued || s == StatusCompleted
}

// URLRecord is one row of the frontier: a URL discovered while crawling BaseURL.
//
// (BaseURL, URL) is the unique key. Depth and SourceURL are fixed when the
// record is first inserted.
type URLRecord struct {
	// BaseURL is the crawl root this record belongs to.
	BaseURL string `json:"base_url"`

	// URL is the absolute URL of the page.
	URL string `json:"url"`

	// SourceURL is the page that linked to URL. Nil for the seed.
	SourceURL *string `json:"source_url"`

	// Depth is the link distance from the seed (seed = 0).
	Depth int `json:"depth"`

	// Title is the page <title>. Nil until the page has been fetched successfully.
	Title *string `json:"title"`

	// LinksToTexts maps each absolute outbound URL to its anchor text.
	// Empty until the page has been fetched.
	LinksToTexts map[string]string `json:"links_to_texts"`

	// Topic is the classifier label. DefaultTopic until classified.
	Topic string `json:"topic"`

	// Status is the lifecycle state of the record.
	Status Status `json:"status"`
}

// IsQueued reports whether the record still waits to be fetched.
func (r URLRecord) IsQueued() bool {
	return r.Status == StatusQueued
}

// PendingURL is a unit of crawl work: a URL together with the page that
// linked to it and its depth.
type PendingURL struct {
	URL       string
	SourceURL *string
	Depth     int
}

// Seed returns the depth-0 work item for a crawl root.
func Seed(baseURL string) PendingURL {
	return PendingURL{URL: baseURL, Depth: 0}
}

// Child returns the work item for a link discovered on the page at p.
func (p PendingURL) Child(link string) PendingURL {
	source := p.URL
	return PendingURL{URL: link, SourceURL: &source, Depth: p.Depth + 1}
}

// CompletedPage carries the content written to the frontier after a
// successful fetch.
type CompletedPage struct {
	URL          string
	SourceURL    *string
	Depth        int
	Title        string
	LinksToTexts map[string]string
	Topic        string
}

// StringPtr returns a pointer to s. It is a helper for the nullable fields.
func StringPtr(s string) *string {
	return &s
}
