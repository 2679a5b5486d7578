package api

import "github.com/nao1215/topiccrawl/internal/model"

// Request defaults.
const (
	DefaultMaxDepth       = 2
	DefaultMaxConcurrency = 10
)

// ScrapeRequest is the body of POST /scrape.
type ScrapeRequest struct {
	BaseURL    string `json:"base_url"`
	MaxDepth   *int   `json:"max_depth,omitempty"`
	StartFresh *bool  `json:"start_fresh,omitempty"`
}

// AsyncScrapeRequest is the body of POST /ascrape.
type AsyncScrapeRequest struct {
	ScrapeRequest
	MaxConcurrency *int `json:"max_concurrency,omitempty"`
}

// ScrapeResponse reports a finished crawl.
type ScrapeResponse struct {
	Status       string `json:"status"`
	ScrapedCount int    `json:"scraped_count"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	BaseURL string            `json:"base_url"`
	Status  model.CrawlStatus `json:"status"`
}

// ResultsResponse is the body of GET /results.
type ResultsResponse struct {
	BaseURL string            `json:"base_url"`
	Results []model.URLRecord `json:"results"`
}

// TopicsRequest is the body of POST /topics.
type TopicsRequest struct {
	Topics []string `json:"topics"`
}

// TopicsResponse lists the active label set.
type TopicsResponse struct {
	Status string   `json:"status"`
	Topics []string `json:"topics"`
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse carries the label of a text and, when the classifier
// reports them, the confidence of each label.
type ClassifyResponse struct {
	Topic  string             `json:"topic"`
	Scores map[string]float64 `json:"scores"`
}

// ErrorResponse carries the message of a failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (r ScrapeRequest) maxDepth() int {
	if r.MaxDepth == nil {
		return DefaultMaxDepth
	}
	return *r.MaxDepth
}

func (r ScrapeRequest) startFresh() bool {
	if r.StartFresh == nil {
		return true
	}
	return *r.StartFresh
}

func (r AsyncScrapeRequest) maxConcurrency() int {
	if r.MaxConcurrency == nil {
		return DefaultMaxConcurrency
	}
	return *r.MaxConcurrency
}
