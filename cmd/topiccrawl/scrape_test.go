package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/topiccrawl/internal/config"
	"github.com/nao1215/topiccrawl/internal/model"
)

// TestNewScrapeCmd tests the scrape command creation.
func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scrape <base-url>..." {
			t.Errorf("expected use 'scrape <base-url>...', got %q", cmd.Use)
		}
	})

	t.Run("requires at least one argument", func(t *testing.T) {
		t.Parallel()
		if cmd.Args == nil {
			t.Fatal("expected Args validator")
		}
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected error without arguments")
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"depth", "d", fmt.Sprint(config.DefaultDepth)},
		{"fresh", "f", "false"},
		{"concurrency", "c", "0"},
		{"batch", "b", "1"},
		{"delay", "", "1s"},
		{"timeout", "t", "10s"},
		{"output", "o", ""},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// newTestSite serves a three-page site: / links to /a and /b, /a links to /c.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/":  `<html><head><title>Home</title></head><body><p>Welcome home</p><a href="/a">A</a><a href="/b">B</a></body></html>`,
		"/a": `<html><head><title>A</title></head><body><p>Football match report</p><a href="/c">C</a></body></html>`,
		"/b": `<html><head><title>B</title></head><body><p>Recipe for bread</p></body></html>`,
		"/c": `<html><head><title>C</title></head><body><p>Deep page</p></body></html>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

// writeTestConfig writes a configuration file that keeps the frontier in a
// temporary directory and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, ".topiccrawl")
	content := fmt.Sprintf("store:\n  driver: sqlite\n  sqlite_dir: %q\ncrawl:\n  delay: 0s\n", filepath.Join(dir, "db"))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestScrapeCommand(t *testing.T) {
	t.Run("crawls site and saves results", func(t *testing.T) {
		site := newTestSite(t)
		configPath := writeTestConfig(t)
		outputPath := filepath.Join(t.TempDir(), "out", "results.json")
		baseURL := site.URL + "/"

		output, err := execute(t, "scrape", "--config", configPath, "-d", "1", "-o", outputPath, baseURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "scraped 3 page(s)") {
			t.Errorf("expected three scraped pages, got %q", output)
		}
		if !strings.Contains(output, "Results saved to") {
			t.Errorf("expected results message, got %q", output)
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read results: %v", err)
		}
		var summaries []model.CrawlSummary
		if err := json.Unmarshal(data, &summaries); err != nil {
			t.Fatalf("invalid JSON results: %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("expected 1 summary, got %d", len(summaries))
		}
		got := summaries[0]
		if got.BaseURL != baseURL {
			t.Errorf("expected base URL %s, got %s", baseURL, got.BaseURL)
		}
		if got.Status != model.CrawlCompleted {
			t.Errorf("expected status completed, got %s", got.Status)
		}
		if got.Total != 3 {
			t.Errorf("expected 3 records, got %d", got.Total)
		}
	})

	t.Run("concurrent crawl reaches the same pages", func(t *testing.T) {
		site := newTestSite(t)
		configPath := writeTestConfig(t)

		output, err := execute(t, "scrape", "--config", configPath, "-d", "2", "-c", "4", site.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output, "scraped 4 page(s)") {
			t.Errorf("expected four scraped pages, got %q", output)
		}
	})

	t.Run("invalid base URL fails", func(t *testing.T) {
		configPath := writeTestConfig(t)

		output, err := execute(t, "scrape", "--config", configPath, "not a url")
		if err == nil {
			t.Fatal("expected error for invalid base URL")
		}
		if !strings.Contains(output, "failed") {
			t.Errorf("expected failure line, got %q", output)
		}
	})

	t.Run("negative depth is rejected", func(t *testing.T) {
		configPath := writeTestConfig(t)

		_, err := execute(t, "scrape", "--config", configPath, "--depth=-1", "https://example.com/")
		if err == nil {
			t.Fatal("expected configuration error")
		}
		if !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("missing explicit config file fails", func(t *testing.T) {
		_, err := execute(t, "scrape", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "https://example.com/")
		if err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
}
