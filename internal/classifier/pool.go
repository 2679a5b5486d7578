package classifier

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/nao1215/topiccrawl/internal/model"
)

// Pool runs a Classifier with at most a fixed number of classifications in
// flight. With one worker, inferences are strictly serialized.
type Pool struct {
	inner  Classifier
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewPool wraps c. A workers value below one is treated as one, and a nil
// logger falls back to slog.Default.
func NewPool(c Classifier, workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		inner:  c,
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
	}
}

// Classify waits for a free worker and classifies text. It returns
// model.DefaultTopic when ctx ends first or the classifier panics.
func (p *Pool) Classify(ctx context.Context, text string) (topic string) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return model.DefaultTopic
	}
	defer p.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("classifier panicked", "panic", r)
			topic = model.DefaultTopic
		}
	}()

	topic = p.inner.Classify(ctx, text)
	if topic == "" {
		topic = model.DefaultTopic
	}
	return topic
}

// ClassifyAsync classifies text on its own goroutine. The returned channel
// receives exactly one label.
func (p *Pool) ClassifyAsync(ctx context.Context, text string) <-chan string {
	out := make(chan string, 1)
	go func() {
		out <- p.Classify(ctx, text)
	}()
	return out
}

// Topics returns the label set of the wrapped classifier, or nil when it
// does not expose one.
func (p *Pool) Topics() []string {
	if setter, ok := p.inner.(TopicSetter); ok {
		return setter.Topics()
	}
	return nil
}

// SetTopics replaces the label set of the wrapped classifier.
func (p *Pool) SetTopics(topics []string) error {
	setter, ok := p.inner.(TopicSetter)
	if !ok {
		return ErrTopicsNotSupported
	}
	return setter.SetTopics(topics)
}

// Scores returns per-label confidences when the wrapped classifier supports them.
func (p *Pool) Scores(ctx context.Context, text string) map[string]float64 {
	scorer, ok := p.inner.(Scorer)
	if !ok {
		return map[string]float64{}
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return map[string]float64{}
	}
	defer p.sem.Release(1)
	return scorer.Scores(ctx, text)
}

var (
	_ Classifier  = (*Pool)(nil)
	_ TopicSetter = (*Pool)(nil)
)
