package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/topiccrawl/internal/classifier"
	"github.com/nao1215/topiccrawl/internal/crawler"
	"github.com/nao1215/topiccrawl/internal/frontier"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 15 * time.Second

// Server exposes the HTTP API for crawling and reporting.
type Server struct {
	spider     *crawler.Spider
	store      frontier.Store
	classifier *classifier.Pool
	logger     *slog.Logger
	mux        *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer wires handlers onto an HTTP mux. Topic and classify requests go
// through the classifier pool of spider.
func NewServer(spider *crawler.Spider, opts ...ServerOption) *Server {
	s := &Server{
		spider:     spider,
		store:      spider.Store(),
		classifier: spider.Classifier(),
		logger:     slog.Default(),
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /scrape", s.handleScrape)
	s.mux.HandleFunc("POST /ascrape", s.handleAsyncScrape)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /results", s.handleResults)
	s.mux.HandleFunc("GET /topics", s.handleGetTopics)
	s.mux.HandleFunc("POST /topics", s.handleSetTopics)
	s.mux.HandleFunc("POST /add_topics", s.handleSetTopics)
	s.mux.HandleFunc("POST /classify", s.handleClassify)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scraped, err := s.spider.Scrape(r.Context(), req.BaseURL, req.maxDepth(), req.startFresh())
	if err != nil {
		s.writeCrawlError(w, req.BaseURL, err)
		return
	}
	writeJSON(w, http.StatusOK, ScrapeResponse{Status: "completed", ScrapedCount: len(scraped)})
}

func (s *Server) handleAsyncScrape(w http.ResponseWriter, r *http.Request) {
	var req AsyncScrapeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scraped, err := s.spider.ScrapeConcurrent(r.Context(), req.BaseURL, req.maxDepth(), req.maxConcurrency(), req.startFresh())
	if err != nil {
		s.writeCrawlError(w, req.BaseURL, err)
		return
	}
	writeJSON(w, http.StatusOK, ScrapeResponse{Status: "completed", ScrapedCount: len(scraped)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	baseURL, ok := requireBaseURL(w, r)
	if !ok {
		return
	}

	summary, err := frontier.Summary(r.Context(), s.store, baseURL)
	if err != nil {
		s.logger.Error("status lookup failed", "base_url", baseURL, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{BaseURL: baseURL, Status: summary.Status})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	baseURL, ok := requireBaseURL(w, r)
	if !ok {
		return
	}

	summary, err := frontier.Summary(r.Context(), s.store, baseURL)
	if err != nil {
		s.logger.Error("results lookup failed", "base_url", baseURL, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{BaseURL: baseURL, Results: summary.Records})
}

func (s *Server) handleGetTopics(w http.ResponseWriter, _ *http.Request) {
	topics := s.classifier.Topics()
	if topics == nil {
		writeError(w, http.StatusConflict, classifier.ErrTopicsNotSupported)
		return
	}
	writeJSON(w, http.StatusOK, TopicsResponse{Status: "success", Topics: topics})
}

func (s *Server) handleSetTopics(w http.ResponseWriter, r *http.Request) {
	var req TopicsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.classifier.SetTopics(req.Topics); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, classifier.ErrNoTopics):
			status = http.StatusBadRequest
		case errors.Is(err, classifier.ErrTopicsNotSupported):
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	topics := s.classifier.Topics()
	s.logger.Info("topics updated", "topics", topics)
	writeJSON(w, http.StatusOK, TopicsResponse{Status: "success", Topics: topics})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	writeJSON(w, http.StatusOK, ClassifyResponse{
		Topic:  s.classifier.Classify(r.Context(), req.Text),
		Scores: s.classifier.Scores(r.Context(), req.Text),
	})
}

// writeCrawlError maps validation errors to 400 and everything else to 500.
func (s *Server) writeCrawlError(w http.ResponseWriter, baseURL string, err error) {
	if isValidationError(err) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Error("crawl failed", "base_url", baseURL, "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func isValidationError(err error) bool {
	return errors.Is(err, crawler.ErrInvalidDepth) ||
		errors.Is(err, crawler.ErrInvalidURL) ||
		errors.Is(err, crawler.ErrInvalidConcurrency)
}

func requireBaseURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	baseURL := strings.TrimSpace(r.URL.Query().Get("base_url"))
	if baseURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter base_url is required"))
		return "", false
	}
	return baseURL, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json payload: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // the client is gone if this fails
}
