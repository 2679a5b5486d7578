package classifier

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/nao1215/topiccrawl/internal/model"
)

// defaultKeywords are the indicative words of each default label.
var defaultKeywords = map[string][]string{
	"weather": {
		"weather", "forecast", "rain", "snow", "storm", "temperature", "humidity",
		"wind", "sunny", "cloudy", "climate", "celsius", "fahrenheit", "hurricane",
	},
	"news": {
		"news", "breaking", "report", "reported", "headline", "headlines", "journalist",
		"press", "according", "announced", "update", "latest", "today",
	},
	"technology": {
		"technology", "tech", "software", "hardware", "computer", "internet", "ai",
		"device", "smartphone", "startup", "cloud", "data", "digital", "gadget",
	},
	"sports": {
		"sport", "sports", "game", "match", "team", "player", "score", "league",
		"football", "soccer", "basketball", "tennis", "tournament", "championship",
	},
	"entertainment": {
		"movie", "film", "music", "celebrity", "show", "tv", "series", "album",
		"concert", "actor", "actress", "entertainment", "festival", "netflix",
	},
	"travel": {
		"travel", "trip", "flight", "hotel", "destination", "tourism", "tourist",
		"vacation", "holiday", "airport", "beach", "passport", "itinerary",
	},
	"cooking": {
		"recipe", "recipes", "cook", "cooking", "bake", "baking", "ingredient",
		"ingredients", "kitchen", "oven", "dish", "meal", "flour", "sauce",
	},
	"politics": {
		"politics", "political", "election", "government", "president", "minister",
		"parliament", "senate", "congress", "vote", "policy", "campaign", "law",
	},
	"shopping": {
		"shop", "shopping", "buy", "sale", "price", "discount", "cart", "checkout",
		"order", "shipping", "deal", "deals", "store", "product",
	},
	"productivity": {
		"productivity", "task", "tasks", "todo", "calendar", "schedule", "workflow",
		"notes", "planner", "focus", "habit", "efficiency", "meeting",
	},
	"coding": {
		"code", "coding", "programming", "developer", "function", "compiler",
		"golang", "python", "javascript", "api", "github", "repository", "bug", "debug",
	},
}

// Keyword classifies text by counting keyword hits per label.
// The label with the most hits wins; ties go to the label listed first.
// A label without a keyword list matches on its own name.
type Keyword struct {
	mu       sync.RWMutex
	topics   []string
	keywords map[string][]string
}

// NewKeyword returns a keyword classifier over DefaultTopics.
func NewKeyword() *Keyword {
	keywords := make(map[string][]string, len(defaultKeywords))
	for label, words := range defaultKeywords {
		keywords[label] = slices.Clone(words)
	}
	return &Keyword{
		topics:   slices.Clone(DefaultTopics),
		keywords: keywords,
	}
}

// Classify returns the best matching label, or model.DefaultTopic.
func (k *Keyword) Classify(_ context.Context, text string) string {
	scores := k.hits(text)

	best, bestHits := model.DefaultTopic, 0
	for _, topic := range k.Topics() {
		if hits := scores[topic]; hits > bestHits {
			best, bestHits = topic, hits
		}
	}
	return best
}

// Scores returns each label's share of the keyword hits.
// Labels without hits are omitted; text without hits yields an empty map.
func (k *Keyword) Scores(_ context.Context, text string) map[string]float64 {
	hits := k.hits(text)

	total := 0
	for _, n := range hits {
		total += n
	}

	scores := make(map[string]float64, len(hits))
	if total == 0 {
		return scores
	}
	for topic, n := range hits {
		scores[topic] = float64(n) / float64(total)
	}
	return scores
}

// Topics returns the active label set.
func (k *Keyword) Topics() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.topics)
}

// SetTopics replaces the label set. Unknown labels match on their own name.
func (k *Keyword) SetTopics(topics []string) error {
	normalized, err := normalizeTopics(topics)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.topics = normalized
	return nil
}

// AddKeywords extends the keyword list of a label.
func (k *Keyword) AddKeywords(topic string, words ...string) {
	topic = foldLabel(topic)

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, w := range words {
		if w = foldLabel(w); w != "" {
			k.keywords[topic] = append(k.keywords[topic], w)
		}
	}
}

// hits counts keyword occurrences per active label.
func (k *Keyword) hits(text string) map[string]int {
	hits := make(map[string]int)
	if strings.TrimSpace(text) == "" {
		return hits
	}

	counts := make(map[string]int)
	for _, token := range tokenize(truncate(text)) {
		counts[token]++
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, topic := range k.topics {
		if topic == model.DefaultTopic {
			continue
		}
		words, ok := k.keywords[topic]
		if !ok {
			words = []string{topic}
		}
		for _, w := range words {
			if n := counts[w]; n > 0 {
				hits[topic] += n
			}
		}
	}
	return hits
}

// tokenize case-folds text and splits it into letter and digit runs.
func tokenize(text string) []string {
	folded := cases.Fold().String(text)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// foldLabel normalizes a label or keyword for comparison.
func foldLabel(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

var (
	_ Classifier  = (*Keyword)(nil)
	_ TopicSetter = (*Keyword)(nil)
	_ Scorer      = (*Keyword)(nil)
)
