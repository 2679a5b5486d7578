package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces every credential found in a log attribute.
const Redacted = "[redacted]"

var (
	// userinfoPassword matches the password of a URL such as
	// postgres://crawler:pw@db/crawl, mongodb://crawler:pw@db or a crawl
	// seed like https://user:pw@intranet.example.com.
	userinfoPassword = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://[^:/@\s]*):([^@/\s]+)@`)

	// dsnPassword matches password=... in a key/value PostgreSQL DSN.
	dsnPassword = regexp.MustCompile(`(?i)\b(password)=('[^']*'|\S+)`)

	// bearerToken matches the Authorization value sent to the classifier.
	bearerToken = regexp.MustCompile(`(?i)\b(bearer)\s+[^\s"',]+`)

	// hubToken matches a Hugging Face access token.
	hubToken = regexp.MustCompile(`\bhf_[A-Za-z0-9]{20,}\b`)
)

// Handler removes store passwords and classifier tokens from attribute values
// before they reach the wrapped handler. Log messages are not rewritten.
type Handler struct {
	next    slog.Handler
	secrets *strings.Replacer
}

// NewHandler wraps next. secrets are literal values, such as the configured
// classifier token, that are replaced wherever they appear. Empty secrets are
// ignored and a nil next falls back to slog.Default().Handler().
func NewHandler(next slog.Handler, secrets ...string) *Handler {
	if next == nil {
		next = slog.Default().Handler()
	}
	var pairs []string
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			pairs = append(pairs, s, Redacted)
		}
	}
	return &Handler{next: next, secrets: strings.NewReplacer(pairs...)}
}

// NewLogger returns a text logger on w that redacts credentials. verbose
// lowers the level from Warn to Debug.
func NewLogger(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(NewHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), secrets...))
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.attr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. Attributes such as the base_url bound by
// a crawl run are redacted once, here.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.attr(a)
	}
	return &Handler{next: h.next.WithAttrs(redacted), secrets: h.secrets}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), secrets: h.secrets}
}

func (h *Handler) attr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch strings.ToLower(a.Key) {
	case "token", "authorization":
		return slog.String(a.Key, Redacted)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = h.attr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		s := a.Value.String()
		if r := h.redact(s); r != s {
			return slog.String(a.Key, r)
		}
	case slog.KindAny:
		if s, ok := text(a.Value.Any()); ok {
			if r := h.redact(s); r != s {
				return slog.String(a.Key, r)
			}
		}
	}
	return a
}

// text returns the printed form of values whose text may carry a URL or DSN,
// such as fetch and store errors or a parsed *url.URL.
func text(v any) (string, bool) {
	switch v := v.(type) {
	case error:
		return v.Error(), true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

func (h *Handler) redact(s string) string {
	s = h.secrets.Replace(s)
	s = userinfoPassword.ReplaceAllString(s, "${1}:"+Redacted+"@")
	s = dsnPassword.ReplaceAllString(s, "${1}="+Redacted)
	s = bearerToken.ReplaceAllString(s, "${1} "+Redacted)
	return hubToken.ReplaceAllString(s, Redacted)
}
