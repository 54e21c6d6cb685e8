package prompt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/pandaai/panda/internal/schema"
)

const (
	pageUserAgent = "Mozilla/5.0 (compatible; PandaAI/1.0)"
	maxRedirects  = 5
	maxPageBytes  = 2 << 20
)

// PageFetcher downloads a web page and turns its readable content into a
// plain-text attachment, so a shared link can ride along with a turn.
type PageFetcher struct {
	maxChars   int
	httpClient *http.Client
}

// NewPageFetcher creates a PageFetcher. maxChars defaults to 20000.
func NewPageFetcher(maxChars int) *PageFetcher {
	if maxChars <= 0 {
		maxChars = 20000
	}
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &PageFetcher{maxChars: maxChars, httpClient: client}
}

// Fetch retrieves rawURL and returns it as a text attachment named after the
// page title.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (schema.Attachment, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return schema.Attachment{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return schema.Attachment{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", pageUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return schema.Attachment{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return schema.Attachment{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return schema.Attachment{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	title, text := u.Host, string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") || looksLikeHTML(body) {
		article, err := readability.FromReader(bytes.NewReader(body), resp.Request.URL)
		if err != nil {
			return schema.Attachment{}, fmt.Errorf("extract %s: %w", rawURL, err)
		}
		text = collapseBlankLines(article.TextContent)
		if article.Title != "" {
			title = article.Title
		}
	}

	if len(text) > f.maxChars {
		text = strings.ToValidUTF8(text[:f.maxChars], "") + "\n[truncated]"
	}
	text = fmt.Sprintf("Source: %s\n\n%s", resp.Request.URL, strings.TrimSpace(text))

	return schema.Attachment{
		Name:     title,
		MimeType: "text/plain",
		Data:     []byte(text),
	}, nil
}

func looksLikeHTML(b []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(b[:min(256, len(b))])))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
