package crawler

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

// Fetch errors. Any of them makes the crawler record the page as completed
// without content.
var (
	// ErrUnexpectedStatus is returned for responses outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when the Content-Type does not contain text/html.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrBodyTooLarge is returned when the decoded body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// Fetcher retrieves a single page. Implementations make exactly one attempt.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Page is a successfully fetched HTML document.
type Page struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Body is the decompressed document, converted to UTF-8.
	Body []byte
}

// FetcherOptions configures an HTTPFetcher.
type FetcherOptions struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration

	// MaxBodySize limits the decoded body size in bytes.
	MaxBodySize int64

	// MaxIdleConns caps idle connections across all hosts.
	MaxIdleConns int

	// MaxConnsPerHost caps simultaneous connections to one host.
	MaxConnsPerHost int

	// ProxyAddress routes every connection through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// RequestsPerSecond limits requests per host. Zero disables the limit.
	RequestsPerSecond float64
}

// Default fetcher settings.
const (
	defaultFetchTimeout    = 10 * time.Second
	defaultMaxBodySize     = 5 * 1024 * 1024 // 5MB
	defaultMaxIdleConns    = 100
	defaultMaxConnsPerHost = 5
	defaultFetchUserAgent  = "topiccrawl/1.0"
)

// HTTPFetcher fetches pages over HTTP with a shared connection pool.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	limiter     *hostLimiter
}

// NewHTTPFetcher creates a fetcher from opts. Zero values select defaults.
func NewHTTPFetcher(opts FetcherOptions) (*HTTPFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = defaultMaxIdleConns
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = defaultMaxConnsPerHost
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultFetchUserAgent
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxConnsPerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Accept-Encoding is set explicitly and decoded in readBody.
		DisableCompression: true,
	}

	if opts.ProxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", opts.ProxyAddress)
		}
		transport.DialContext = contextDialer.DialContext
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   opts.UserAgent,
		timeout:     opts.Timeout,
		maxBodySize: opts.MaxBodySize,
		limiter:     newHostLimiter(opts.RequestsPerSecond),
	}, nil
}

// Fetch downloads pageURL and returns the document if it is HTML.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", pageURL, err)
	}
	if err := f.limiter.Wait(ctx, u.Host); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("%w: %q", ErrNotHTML, contentType)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	utf8Body, err := toUTF8(body, contentType)
	if err != nil {
		return nil, err
	}

	return &Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        utf8Body,
	}, nil
}

// readBody decompresses the response body and enforces the size limit.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}

// toUTF8 converts body to UTF-8 using the Content-Type charset and <meta> hints.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	converted, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to convert charset: %w", err)
	}
	return converted, nil
}

// hostLimiter keeps one token bucket per host.
type hostLimiter struct {
	rps      rate.Limit
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// newHostLimiter returns nil when rps is not positive; a nil limiter never waits.
func newHostLimiter(rps float64) *hostLimiter {
	if rps <= 0 {
		return nil
	}
	return &hostLimiter{
		rps:      rate.Limit(rps),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is allowed.
func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	host = strings.ToLower(host)

	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(h.rps, 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
