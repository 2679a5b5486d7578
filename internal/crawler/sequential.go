package crawler

import "context"

// Scrape crawls baseURL one page at a time, breadth first, down to maxDepth.
//
// With startFresh the crawl starts from the seed; otherwise it resumes from
// the queued rows left in the store by an earlier run. Every URL is fetched
// at most once per call. Fetch failures are recorded as completed pages
// without content; store errors abort the crawl.
//
// The returned set holds every URL whose content was stored by this call.
func (s *Spider) Scrape(ctx context.Context, baseURL string, maxDepth int, startFresh bool) (map[string]struct{}, error) {
	if err := validate(baseURL, maxDepth); err != nil {
		return nil, err
	}

	ss := s.newSession(baseURL, maxDepth, "sequential")
	err := s.runSequential(ctx, ss, startFresh)
	ss.finish(err)
	return ss.result(), err
}

// runSequential drains a FIFO work list.
func (s *Spider) runSequential(ctx context.Context, ss *session, startFresh bool) error {
	queue, err := s.initialWork(ctx, ss, startFresh)
	if err != nil {
		return err
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := queue[0]
		queue = queue[1:]

		if item.Depth > ss.maxDepth || !ss.tryVisit(item.URL) {
			continue
		}

		if err := s.store.Enqueue(ctx, ss.baseURL, item.URL, item.SourceURL, item.Depth); err != nil {
			return err
		}

		children, err := s.process(ctx, ss, item)
		if err != nil {
			return err
		}
		queue = append(queue, children...)

		if len(queue) > 0 {
			if err := s.wait(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}
