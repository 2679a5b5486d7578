package classifier

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/topiccrawl/internal/model"
)

// MaxInputRunes is the number of leading runes of the text that are classified.
const MaxInputRunes = 512

// DefaultTopics is the label set used when none is configured.
var DefaultTopics = []string{
	"weather", "news", "technology", "sports",
	"entertainment", "travel", "cooking", "politics",
	"shopping", "productivity", "coding", model.DefaultTopic,
}

// ErrTopicsNotSupported is returned when the label set of a classifier cannot be changed.
var ErrTopicsNotSupported = errors.New("classifier does not support changing topics")

// ErrNoTopics is returned when SetTopics receives no usable label.
var ErrNoTopics = errors.New("at least one topic is required")

// Classifier labels text with a topic. Implementations must be safe for
// concurrent use and must return model.DefaultTopic instead of failing.
type Classifier interface {
	Classify(ctx context.Context, text string) string
}

// TopicSetter is implemented by classifiers whose label set can be replaced at runtime.
type TopicSetter interface {
	// Topics returns the active label set.
	Topics() []string

	// SetTopics replaces the label set. model.DefaultTopic is always kept.
	SetTopics(topics []string) error
}

// Scorer is implemented by classifiers that expose a confidence per label.
type Scorer interface {
	Scores(ctx context.Context, text string) map[string]float64
}

// Config selects and configures a classifier.
type Config struct {
	// Endpoint is the URL of a zero-shot classification service.
	// Empty selects the keyword classifier.
	Endpoint string

	// Token is sent as a bearer token to Endpoint.
	Token string

	// Topics overrides DefaultTopics.
	Topics []string

	// Timeout bounds one remote classification.
	Timeout time.Duration

	// Keywords extends the keyword lists of the keyword classifier, per label.
	Keywords map[string][]string
}

// New returns a Remote classifier when cfg.Endpoint is set, else a Keyword classifier.
func New(cfg Config) (Classifier, error) {
	if cfg.Endpoint != "" {
		remote := NewRemote(cfg.Endpoint, WithToken(cfg.Token), WithTimeout(cfg.Timeout))
		if len(cfg.Topics) > 0 {
			if err := remote.SetTopics(cfg.Topics); err != nil {
				return nil, err
			}
		}
		return remote, nil
	}

	keyword := NewKeyword()
	if len(cfg.Topics) > 0 {
		if err := keyword.SetTopics(cfg.Topics); err != nil {
			return nil, err
		}
	}
	for topic, words := range cfg.Keywords {
		keyword.AddKeywords(topic, words...)
	}
	return keyword, nil
}

// truncate returns the first MaxInputRunes runes of text.
func truncate(text string) string {
	n := 0
	for i := range text {
		if n == MaxInputRunes {
			return text[:i]
		}
		n++
	}
	return text
}

// normalizeTopics trims, deduplicates and lowercases labels and makes sure
// model.DefaultTopic is present exactly once, at the end.
func normalizeTopics(topics []string) ([]string, error) {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics)+1)
	for _, topic := range topics {
		topic = foldLabel(topic)
		if topic == "" || topic == model.DefaultTopic {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}
	if len(out) == 0 {
		return nil, ErrNoTopics
	}
	return append(out, model.DefaultTopic), nil
}
