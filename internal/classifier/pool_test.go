package classifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/topiccrawl/internal/model"
)

// countingClassifier records the peak number of concurrent calls.
type countingClassifier struct {
	active atomic.Int32
	peak   atomic.Int32
	label  string
}

func (c *countingClassifier) Classify(_ context.Context, _ string) string {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return c.label
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(context.Context, string) string {
	panic("model crashed")
}

type emptyClassifier struct{}

func (emptyClassifier) Classify(context.Context, string) string {
	return ""
}

// classifyAll classifies texts concurrently and returns the labels in input order.
func classifyAll(pool *Pool, texts []string) []string {
	labels := make([]string, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels[i] = pool.Classify(context.Background(), text)
		}()
	}
	wg.Wait()
	return labels
}

// TestPool tests the bounded classification pool.
func TestPool(t *testing.T) {
	t.Parallel()

	t.Run("single worker serializes calls", func(t *testing.T) {
		t.Parallel()

		inner := &countingClassifier{label: "news"}
		pool := NewPool(inner, 0, nil)

		labels := classifyAll(pool, []string{"a", "b", "c", "d", "e"})
		for i, label := range labels {
			if label != "news" {
				t.Errorf("labels[%d] = %q", i, label)
			}
		}
		if peak := inner.peak.Load(); peak != 1 {
			t.Errorf("expected peak concurrency 1, got %d", peak)
		}
	})

	t.Run("workers bound concurrency", func(t *testing.T) {
		t.Parallel()

		inner := &countingClassifier{label: "news"}
		pool := NewPool(inner, 2, nil)

		classifyAll(pool, make([]string, 8))
		if peak := inner.peak.Load(); peak > 2 {
			t.Errorf("expected peak concurrency <= 2, got %d", peak)
		}
	})

	t.Run("async delivers one label", func(t *testing.T) {
		t.Parallel()

		pool := NewPool(&countingClassifier{label: "travel"}, 1, nil)
		select {
		case label := <-pool.ClassifyAsync(context.Background(), "trip"):
			if label != "travel" {
				t.Errorf("expected travel, got %q", label)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for label")
		}
	})

	t.Run("panic becomes default topic", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		pool := NewPool(panickingClassifier{}, 1, logger)
		if got := pool.Classify(context.Background(), "x"); got != model.DefaultTopic {
			t.Errorf("expected %q, got %q", model.DefaultTopic, got)
		}
		// The worker slot must have been released.
		if got := pool.Classify(context.Background(), "x"); got != model.DefaultTopic {
			t.Errorf("expected %q, got %q", model.DefaultTopic, got)
		}
		out := buf.String()
		if !strings.Contains(out, "classifier panicked") || !strings.Contains(out, "model crashed") {
			t.Errorf("expected panic on the injected logger, got %q", out)
		}
	})

	t.Run("empty label becomes default topic", func(t *testing.T) {
		t.Parallel()

		if got := NewPool(emptyClassifier{}, 1, nil).Classify(context.Background(), "x"); got != model.DefaultTopic {
			t.Errorf("expected %q, got %q", model.DefaultTopic, got)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if got := NewPool(&countingClassifier{label: "news"}, 1, nil).Classify(ctx, "x"); got != model.DefaultTopic {
			t.Errorf("expected %q, got %q", model.DefaultTopic, got)
		}
	})

	t.Run("topics are forwarded", func(t *testing.T) {
		t.Parallel()

		pool := NewPool(NewKeyword(), 1, nil)
		if err := pool.SetTopics([]string{"news"}); err != nil {
			t.Fatalf("SetTopics failed: %v", err)
		}
		if got := pool.Topics(); len(got) != 2 {
			t.Errorf("unexpected topics %v", got)
		}

		plain := NewPool(emptyClassifier{}, 1, nil)
		if err := plain.SetTopics([]string{"news"}); !errors.Is(err, ErrTopicsNotSupported) {
			t.Errorf("expected ErrTopicsNotSupported, got %v", err)
		}
		if plain.Topics() != nil {
			t.Error("expected nil topics")
		}
	})
}

func TestPoolScores(t *testing.T) {
	t.Parallel()

	t.Run("forwards to a scoring classifier", func(t *testing.T) {
		t.Parallel()

		pool := NewPool(NewKeyword(), 1, nil)
		scores := pool.Scores(context.Background(), "rain and snow in the forecast")
		if scores["weather"] != 1 {
			t.Errorf("expected weather score 1, got %v", scores)
		}
	})

	t.Run("empty for a classifier without scores", func(t *testing.T) {
		t.Parallel()

		scores := NewPool(emptyClassifier{}, 1, nil).Scores(context.Background(), "rain")
		if scores == nil || len(scores) != 0 {
			t.Errorf("expected empty scores, got %#v", scores)
		}
	})
}
