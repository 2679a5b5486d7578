package model

// CrawlStatus describes the state of a crawl root as seen from its records.
type CrawlStatus string

const (
	// CrawlNotStarted means the frontier holds no record for the root.
	CrawlNotStarted CrawlStatus = "not_started"

	// CrawlInterrupted means at least one record is still queued.
	// A crawl that is currently running reports the same status; the frontier
	// carries no heartbeat that would tell the two apart.
	CrawlInterrupted CrawlStatus = "interrupted"

	// CrawlCompleted means every record of the root is completed.
	CrawlCompleted CrawlStatus = "completed"
)

// String returns the status name.
func (s CrawlStatus) String() string {
	return string(s)
}

// StatusOf derives the crawl status from all records of a crawl root.
func StatusOf(records []URLRecord) CrawlStatus {
	if len(records) == 0 {
		return CrawlNotStarted
	}
	for _, r := range records {
		if r.IsQueued() {
			return CrawlInterrupted
		}
	}
	return CrawlCompleted
}

// CrawlSummary is the reporting view of one crawl root.
type CrawlSummary struct {
	BaseURL   string      `json:"base_url"`
	Status    CrawlStatus `json:"status"`
	Total     int         `json:"total"`
	Queued    int         `json:"queued"`
	Completed int         `json:"completed"`
	Records   []URLRecord `json:"results"`
}

// NewCrawlSummary builds a summary from the records of baseURL.
func NewCrawlSummary(baseURL string, records []URLRecord) *CrawlSummary {
	summary := &CrawlSummary{
		BaseURL: baseURL,
		Status:  StatusOf(records),
		Total:   len(records),
		Records: records,
	}
	for _, r := range records {
		if r.IsQueued() {
			summary.Queued++
		} else {
			summary.Completed++
		}
	}
	if summary.Records == nil {
		summary.Records = []URLRecord{}
	}
	return summary
}

// TopicCounts returns how many completed records carry each topic.
func (s *CrawlSummary) TopicCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Records {
		if r.Status == StatusCompleted {
			counts[r.Topic]++
		}
	}
	return counts
}
