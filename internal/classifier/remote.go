package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/topiccrawl/internal/model"
)

// defaultRemoteTimeout bounds one request to the classification endpoint.
const defaultRemoteTimeout = 30 * time.Second

// Remote classifies text with a zero-shot classification endpoint that
// speaks the Hugging Face Inference API format:
//
//	request:  {"inputs": "...", "parameters": {"candidate_labels": ["news", ...]}}
//	response: {"labels": ["news", ...], "scores": [0.91, ...]}
type Remote struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger

	mu     sync.RWMutex
	topics []string
}

// RemoteOption configures a Remote classifier.
type RemoteOption func(*Remote)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) RemoteOption {
	return func(r *Remote) {
		r.token = token
	}
}

// WithTimeout sets the request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *Remote) {
		if client != nil {
			r.client = client
		}
	}
}

// WithRemoteLogger sets the logger for request failures.
func WithRemoteLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRemote returns a classifier that posts to endpoint.
func NewRemote(endpoint string, opts ...RemoteOption) *Remote {
	r := &Remote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultRemoteTimeout},
		logger:   slog.Default(),
		topics:   slices.Clone(DefaultTopics),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify returns the highest scoring known label, or model.DefaultTopic.
func (r *Remote) Classify(ctx context.Context, text string) string {
	resp, err := r.infer(ctx, text)
	if err != nil {
		r.logger.Warn("remote classification failed", "endpoint", r.endpoint, "error", err)
		return model.DefaultTopic
	}
	if resp == nil || len(resp.Labels) == 0 {
		return model.DefaultTopic
	}

	top := foldLabel(resp.Labels[0])
	if !slices.Contains(r.Topics(), top) {
		return model.DefaultTopic
	}
	return top
}

// Scores returns the confidence of each label reported by the endpoint.
// Failures yield an empty map.
func (r *Remote) Scores(ctx context.Context, text string) map[string]float64 {
	scores := make(map[string]float64)

	resp, err := r.infer(ctx, text)
	if err != nil {
		r.logger.Warn("remote classification failed", "endpoint", r.endpoint, "error", err)
		return scores
	}
	if resp == nil {
		return scores
	}
	for i, label := range resp.Labels {
		if i < len(resp.Scores) {
			scores[foldLabel(label)] = resp.Scores[i]
		}
	}
	return scores
}

// infer posts text to the endpoint. It returns nil without error for blank text.
func (r *Remote) infer(ctx context.Context, text string) (*zeroShotResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	payload, err := json.Marshal(zeroShotRequest{
		Inputs:     truncate(text),
		Parameters: zeroShotParameters{CandidateLabels: r.Topics()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return decodeZeroShot(body)
}

// decodeZeroShot accepts either a single result object or a one-element array.
func decodeZeroShot(body []byte) (*zeroShotResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []zeroShotResponse
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(results) == 0 {
			return nil, nil
		}
		return &results[0], nil
	}

	var result zeroShotResponse
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// Topics returns the candidate labels sent to the endpoint.
func (r *Remote) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.topics)
}

// SetTopics replaces the candidate labels.
func (r *Remote) SetTopics(topics []string) error {
	normalized, err := normalizeTopics(topics)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = normalized
	return nil
}

var (
	_ Classifier  = (*Remote)(nil)
	_ TopicSetter = (*Remote)(nil)
	_ Scorer      = (*Remote)(nil)
)
