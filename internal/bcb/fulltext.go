package bcb

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// maxFullTextLen bounds summarization input cost.
const maxFullTextLen = 6000

// Extractor pulls the plain text of a normativo page for summarization.
// It is best-effort by contract: any failure yields an empty string and the
// caller degrades to the item's ementa.
type Extractor struct {
	client *http.Client
	logger *zap.Logger
}

func NewExtractor(client *http.Client, logger *zap.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{client: client, logger: logger}
}

// FetchFullText retrieves and cleans the page at rawURL. Never returns an
// error; failures are logged at warn level and produce "".
func (e *Extractor) FetchFullText(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		e.logger.Warn("cannot build full-text request", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("full-text fetch failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("full-text fetch returned non-OK status",
			zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		e.logger.Warn("cannot read full-text body", zap.String("url", rawURL), zap.Error(err))
		return ""
	}

	text := extractText(body, rawURL)
	if utf8.RuneCountInString(text) > maxFullTextLen {
		text = string([]rune(text)[:maxFullTextLen])
	}
	return text
}

// extractText prefers readability's main-content extraction and falls back
// to a raw strip of the whole document when readability cannot cope with
// the markup.
func extractText(body []byte, rawURL string) string {
	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return normalizeWhitespace(article.TextContent)
	}
	return stripMarkup(body)
}

// stripMarkup walks the DOM discarding script, style and chrome elements and
// collapses the rest to plain text.
func stripMarkup(body []byte) string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return normalizeWhitespace(sb.String())
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

// fetchTitle grabs the document title of a probed detail page.
func (f *Fetcher) fetchTitle(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "title" || n.Data == "h1") && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	return title
}
