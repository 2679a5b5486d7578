package crawler

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/topiccrawl/internal/model"
)

// skippedHrefPrefixes lists href prefixes that never lead to a crawlable page.
var skippedHrefPrefixes = []string{"#", "javascript:", "mailto:"}

// Parser extracts the title, paragraph text and outbound links of an HTML page.
//
// Design decision: goquery gives CSS selectors over the golang.org/x/net/html
// tree, so each extraction rule is a single selector instead of a hand
// written DOM walk.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains everything extracted from one HTML page.
type ParseResult struct {
	// Title is the trimmed <title> text, or "" when the page has none.
	Title string

	// Text is the trimmed text of every <p>, joined with single spaces.
	// It is the classifier input.
	Text string

	// Links maps each absolute outbound URL to its link text.
	// When the same URL appears twice the last anchor wins.
	Links map[string]string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses UTF-8 HTML content and extracts title, text and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return nil, err
	}

	return &ParseResult{
		Title: extractTitle(doc),
		Text:  extractText(doc),
		Links: p.extractLinks(doc),
	}, nil
}

// extractTitle returns the text of the first <title>.
func extractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractText joins the trimmed text of every non-empty <p>.
func extractText(doc *goquery.Document) string {
	texts := make([]string, 0)
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return strings.Join(texts, " ")
}

// extractLinks collects every resolvable a[href] of the page.
//
// Link text falls back to the alt text of a contained image, then to the
// absolute URL itself, so the stored text is never empty.
func (p *Parser) extractLinks(doc *goquery.Document) map[string]string {
	links := make(map[string]string)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved := p.resolveURL(href)
		if resolved == "" {
			return
		}

		text := strings.TrimSpace(s.Text())
		if text == "" {
			if alt, ok := s.Find("img[alt]").First().Attr("alt"); ok {
				text = strings.TrimSpace(alt)
			}
		}
		if text == "" {
			text = resolved
		}
		links[resolved] = text
	})

	return links
}

// resolveURL resolves href against the page URL.
// It returns "" for hrefs that are skipped or do not resolve to an absolute URL.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	for _, prefix := range skippedHrefPrefixes {
		if strings.HasPrefix(href, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u).String()
	if !model.IsAbsoluteURL(resolved) {
		return ""
	}
	return resolved
}
