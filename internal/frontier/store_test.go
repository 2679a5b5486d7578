package frontier

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nao1215/topiccrawl/internal/model"
)

// runStoreSuite exercises the Store contract against one backend.
// Every subtest works on its own base URL so that backends shared between
// test runs do not interfere.
func runStoreSuite(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()
	base := func(t *testing.T) string {
		t.Helper()
		root := "http://test.com/" + t.Name()
		if err := store.Purge(ctx, root); err != nil {
			t.Fatalf("failed to purge: %v", err)
		}
		return root
	}

	t.Run("enqueue creates queued row with defaults", func(t *testing.T) {
		root := base(t)

		if err := store.Enqueue(ctx, root, root, nil, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}

		r := records[0]
		if r.Status != model.StatusQueued {
			t.Errorf("expected queued, got %s", r.Status)
		}
		if r.SourceURL != nil {
			t.Errorf("expected nil source, got %q", *r.SourceURL)
		}
		if r.Title != nil {
			t.Errorf("expected nil title, got %q", *r.Title)
		}
		if r.Topic != model.DefaultTopic {
			t.Errorf("expected topic %q, got %q", model.DefaultTopic, r.Topic)
		}
		if r.LinksToTexts == nil || len(r.LinksToTexts) != 0 {
			t.Errorf("expected empty links, got %v", r.LinksToTexts)
		}
	})

	t.Run("enqueue keeps first depth and source", func(t *testing.T) {
		root := base(t)
		page := root + "/a"

		if err := store.Enqueue(ctx, root, page, model.StringPtr(root), 1); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.Enqueue(ctx, root, page, model.StringPtr(root+"/other"), 3); err != nil {
			t.Fatalf("failed to enqueue again: %v", err)
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Depth != 1 {
			t.Errorf("expected depth 1, got %d", records[0].Depth)
		}
		if records[0].SourceURL == nil || *records[0].SourceURL != root {
			t.Errorf("expected source %q, got %v", root, records[0].SourceURL)
		}
	})

	t.Run("enqueue never reverts a completed row", func(t *testing.T) {
		root := base(t)

		if err := store.Enqueue(ctx, root, root, nil, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.CompleteWithContent(ctx, root, model.CompletedPage{
			URL:          root,
			Title:        "Home",
			LinksToTexts: map[string]string{root + "/a": "A"},
			Topic:        "news",
		}); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
		if err := store.Enqueue(ctx, root, root, nil, 0); err != nil {
			t.Fatalf("failed to re-enqueue: %v", err)
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		r := records[0]
		if r.Status != model.StatusCompleted {
			t.Errorf("expected completed, got %s", r.Status)
		}
		if r.Title == nil || *r.Title != "Home" {
			t.Errorf("expected title Home, got %v", r.Title)
		}
		if r.Topic != "news" {
			t.Errorf("expected topic news, got %q", r.Topic)
		}
		if r.LinksToTexts[root+"/a"] != "A" {
			t.Errorf("unexpected links: %v", r.LinksToTexts)
		}
	})

	t.Run("complete inserts missing row", func(t *testing.T) {
		root := base(t)
		page := root + "/new"

		if err := store.CompleteWithContent(ctx, root, model.CompletedPage{
			URL:       page,
			SourceURL: model.StringPtr(root),
			Depth:     2,
			Title:     "",
		}); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		r := records[0]
		if r.Depth != 2 || r.Status != model.StatusCompleted {
			t.Errorf("unexpected record: %+v", r)
		}
		if r.Title == nil || *r.Title != "" {
			t.Errorf("expected empty non-nil title, got %v", r.Title)
		}
		if r.Topic != model.DefaultTopic {
			t.Errorf("expected default topic, got %q", r.Topic)
		}
	})

	t.Run("complete does not change depth of existing row", func(t *testing.T) {
		root := base(t)
		page := root + "/a"

		if err := store.Enqueue(ctx, root, page, model.StringPtr(root), 1); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.CompleteWithContent(ctx, root, model.CompletedPage{
			URL:       page,
			SourceURL: model.StringPtr(root + "/b"),
			Depth:     2,
			Title:     "A",
		}); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		if records[0].Depth != 1 {
			t.Errorf("expected depth 1, got %d", records[0].Depth)
		}
		if *records[0].SourceURL != root {
			t.Errorf("expected source %q, got %q", root, *records[0].SourceURL)
		}
	})

	t.Run("mark completed empty", func(t *testing.T) {
		root := base(t)

		if err := store.Enqueue(ctx, root, root, nil, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.MarkCompletedEmpty(ctx, root, root); err != nil {
			t.Fatalf("failed to mark: %v", err)
		}
		if err := store.MarkCompletedEmpty(ctx, root, root+"/missing"); err != nil {
			t.Fatalf("mark of missing row should be a no-op: %v", err)
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Status != model.StatusCompleted || records[0].Title != nil {
			t.Errorf("unexpected record: %+v", records[0])
		}
	})

	t.Run("recover pending is ordered by depth then url", func(t *testing.T) {
		root := base(t)

		items := []model.PendingURL{
			{URL: root + "/z", SourceURL: model.StringPtr(root), Depth: 1},
			{URL: root + "/deep", SourceURL: model.StringPtr(root + "/z"), Depth: 2},
			{URL: root + "/a", SourceURL: model.StringPtr(root), Depth: 1},
			{URL: root, Depth: 0},
		}
		for _, item := range items {
			if err := store.Enqueue(ctx, root, item.URL, item.SourceURL, item.Depth); err != nil {
				t.Fatalf("failed to enqueue: %v", err)
			}
		}
		if err := store.MarkCompletedEmpty(ctx, root, root); err != nil {
			t.Fatalf("failed to mark: %v", err)
		}

		pending, err := store.RecoverPending(ctx, root)
		if err != nil {
			t.Fatalf("failed to recover: %v", err)
		}

		expected := []string{root + "/a", root + "/z", root + "/deep"}
		if len(pending) != len(expected) {
			t.Fatalf("expected %d pending, got %d", len(expected), len(pending))
		}
		for i, url := range expected {
			if pending[i].URL != url {
				t.Errorf("pending[%d] = %q, expected %q", i, pending[i].URL, url)
			}
		}
		if pending[2].Depth != 2 || pending[2].SourceURL == nil || *pending[2].SourceURL != root+"/z" {
			t.Errorf("unexpected deep item: %+v", pending[2])
		}
	})

	t.Run("roots are isolated", func(t *testing.T) {
		root := base(t)
		other := root + "-other"
		if err := store.Purge(ctx, other); err != nil {
			t.Fatalf("failed to purge: %v", err)
		}

		if err := store.Enqueue(ctx, root, root, nil, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.Enqueue(ctx, other, root, nil, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.MarkCompletedEmpty(ctx, other, root); err != nil {
			t.Fatalf("failed to mark: %v", err)
		}

		pending, err := store.RecoverPending(ctx, root)
		if err != nil {
			t.Fatalf("failed to recover: %v", err)
		}
		if len(pending) != 1 {
			t.Errorf("expected 1 pending for root, got %d", len(pending))
		}

		roots, err := store.BaseURLs(ctx)
		if err != nil {
			t.Fatalf("failed to list roots: %v", err)
		}
		found := 0
		for _, r := range roots {
			if r == root || r == other {
				found++
			}
		}
		if found != 2 {
			t.Errorf("expected both roots listed, got %v", roots)
		}
	})

	t.Run("purge removes only the root", func(t *testing.T) {
		root := base(t)

		if err := store.Enqueue(ctx, root, root, nil, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if err := store.Purge(ctx, root); err != nil {
			t.Fatalf("failed to purge: %v", err)
		}

		summary, err := Summary(ctx, store, root)
		if err != nil {
			t.Fatalf("failed to summarize: %v", err)
		}
		if summary.Status != model.CrawlNotStarted {
			t.Errorf("expected not_started, got %s", summary.Status)
		}
	})

	t.Run("concurrent enqueue of same url", func(t *testing.T) {
		root := base(t)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- store.Enqueue(ctx, root, root+"/same", model.StringPtr(fmt.Sprintf("%s/%d", root, i)), 1)
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent enqueue failed: %v", err)
			}
		}

		records, err := store.AllRecords(ctx, root)
		if err != nil {
			t.Fatalf("failed to load records: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
	})
}
