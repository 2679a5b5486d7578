package crawler

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/topiccrawl/internal/model"
)

// ScrapeConcurrent crawls baseURL level by level with at most maxConcurrency
// pages in flight.
//
// Every page at depth d is resolved before any page at depth d+1 is
// scheduled, so the depth contract holds regardless of completion order.
// A fetch failure or a panic inside one page's work is recorded as a
// completed page without content and does not affect its siblings. Store
// errors abort the crawl.
func (s *Spider) ScrapeConcurrent(ctx context.Context, baseURL string, maxDepth, maxConcurrency int, startFresh bool) (map[string]struct{}, error) {
	if err := validate(baseURL, maxDepth); err != nil {
		return nil, err
	}
	if maxConcurrency < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConcurrency, maxConcurrency)
	}

	ss := s.newSession(baseURL, maxDepth, "concurrent")
	ss.async = true
	err := s.runLevels(ctx, ss, maxConcurrency, startFresh)
	ss.finish(err)
	return ss.result(), err
}

// runLevels processes one depth at a time, waiting for the whole level
// before moving on.
func (s *Spider) runLevels(ctx context.Context, ss *session, maxConcurrency int, startFresh bool) error {
	initial, err := s.initialWork(ctx, ss, startFresh)
	if err != nil {
		return err
	}
	pending := newLevelQueue(initial)

	for depth := 0; depth <= ss.maxDepth; depth++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		items := pending.take(depth)
		if len(items) == 0 {
			continue
		}
		ss.logger.Debug("starting level", "depth", depth, "items", len(items), "pending", pending.len())

		children, err := s.runLevel(ctx, ss, items, maxConcurrency)
		if err != nil {
			return err
		}
		pending.push(children...)
	}

	return nil
}

// runLevel schedules one unit per unvisited item and returns the children
// collected from every unit once all of them have finished.
func (s *Spider) runLevel(ctx context.Context, ss *session, items []model.PendingURL, maxConcurrency int) ([]model.PendingURL, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	var (
		mu   sync.Mutex
		next []model.PendingURL
	)

	for _, item := range items {
		if ss.isVisited(item.URL) {
			continue
		}
		g.Go(func() error {
			children, err := s.unit(gctx, ss, item)
			if err != nil {
				return err
			}
			mu.Lock()
			next = append(next, children...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return next, nil
}

// unit is the work for one page in concurrent mode. Only store errors and
// context cancellation are returned; a panic is turned into a page without
// content.
func (s *Spider) unit(ctx context.Context, ss *session, item model.PendingURL) (children []model.PendingURL, err error) {
	if !ss.tryVisit(item.URL) {
		return nil, nil
	}

	if err := s.store.Enqueue(ctx, ss.baseURL, item.URL, item.SourceURL, item.Depth); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			ss.logger.Error("page worker panicked", "url", item.URL, "depth", item.Depth, "panic", r)
			children = nil
			err = s.store.MarkCompletedEmpty(ctx, ss.baseURL, item.URL)
		}
	}()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.process(ctx, ss, item)
}
