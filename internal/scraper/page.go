package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"miim/internal/normalize"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const userAgent = "MIIM-Scraper/1.0 (+https://miim.ma)"

// maxPageBytes bounds how much of a response body is read
const maxPageBytes = 5 << 20

// Page is the readable content and metadata of one article page
type Page struct {
	URL         string
	Title       string
	PublishedAt *time.Time
	Language    string
	Text        string
}

// PageFetcher downloads pages politely: one request at a time with a minimum gap
type PageFetcher struct {
	httpClient *http.Client
	rateLimit  time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// NewPageFetcher creates a fetcher with the given request timeout and gap between requests
func NewPageFetcher(timeout, rateLimit time.Duration) *PageFetcher {
	return &PageFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		rateLimit: rateLimit,
	}
}

func (pf *PageFetcher) wait(ctx context.Context) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if pf.rateLimit > 0 && !pf.lastRequest.IsZero() {
		if gap := pf.rateLimit - time.Since(pf.lastRequest); gap > 0 {
			timer := time.NewTimer(gap)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	pf.lastRequest = time.Now()
	return nil
}

// Get returns the raw HTML at pageURL
func (pf *PageFetcher) Get(ctx context.Context, pageURL string) (string, error) {
	if err := pf.wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")

	resp, err := pf.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// FetchArticle downloads and parses one article page
func (pf *PageFetcher) FetchArticle(ctx context.Context, pageURL string) (*Page, error) {
	raw, err := pf.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseArticle(raw, pageURL)
}

// ParseArticle pulls the title, publication date, language and readable body out of an HTML page
func ParseArticle(rawHTML, pageURL string) (*Page, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{URL: pageURL}
	extractJSONLD(doc, page)
	extractMeta(doc, page)
	if page.Title == "" {
		page.Title = findTitle(doc)
	}
	page.Language = findLanguage(doc)

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		body, qerr := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if qerr == nil {
			body.Find("script, style").Remove()
			page.Text = normalize.CollapseWhitespace(blockText(body.Selection))
		}
		if page.Title == "" {
			page.Title = strings.TrimSpace(article.Title)
		}
	}
	if page.Text == "" {
		page.Text = normalize.CollapseWhitespace(nodeText(doc))
	}

	page.Title = normalize.CollapseWhitespace(page.Title)
	return page, nil
}

// blockText joins the text of block elements with spaces so paragraphs do not run together
func blockText(sel *goquery.Selection) string {
	var parts []string
	blocks := sel.Find("p, h1, h2, h3, h4, li, blockquote")
	if blocks.Length() == 0 {
		return sel.Text()
	}
	blocks.Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func extractMeta(doc *html.Node, page *Page) {
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return
		}
		key := attr(n, "property")
		if key == "" {
			key = attr(n, "name")
		}
		content := strings.TrimSpace(attr(n, "content"))
		if content == "" {
			return
		}

		switch key {
		case "og:title":
			if page.Title == "" {
				page.Title = content
			}
		case "article:published_time", "article:published", "date", "pubdate":
			if page.PublishedAt == nil {
				page.PublishedAt = ParseDate(content)
			}
		}
	})

	if page.PublishedAt != nil {
		return
	}
	walk(doc, func(n *html.Node) {
		if page.PublishedAt == nil && n.Type == html.ElementNode && n.Data == "time" {
			if dt := attr(n, "datetime"); dt != "" {
				page.PublishedAt = ParseDate(dt)
			} else if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				page.PublishedAt = ParseDate(n.FirstChild.Data)
			}
		}
	})
}

func extractJSONLD(doc *html.Node, page *Page) {
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "script" || attr(n, "type") != "application/ld+json" {
			return
		}
		if n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
			return
		}

		var data interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(n.FirstChild.Data)), &data); err != nil {
			return
		}

		var visit func(interface{})
		visit = func(item interface{}) {
			switch v := item.(type) {
			case []interface{}:
				for _, sub := range v {
					visit(sub)
				}
			case map[string]interface{}:
				if graph, ok := v["@graph"]; ok {
					visit(graph)
				}
				typ, _ := v["@type"].(string)
				if typ != "NewsArticle" && typ != "Article" && typ != "ReportageNewsArticle" {
					return
				}
				if headline, ok := v["headline"].(string); ok && page.Title == "" {
					page.Title = headline
				}
				if published, ok := v["datePublished"].(string); ok && page.PublishedAt == nil {
					page.PublishedAt = ParseDate(published)
				}
			}
		}
		visit(data)
	})
}

func findTitle(doc *html.Node) string {
	var title string
	walk(doc, func(n *html.Node) {
		if title == "" && n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
		}
	})
	return title
}

func findLanguage(doc *html.Node) string {
	var lang string
	walk(doc, func(n *html.Node) {
		if lang == "" && n.Type == html.ElementNode && n.Data == "html" {
			lang = attr(n, "lang")
		}
	})
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	lang = strings.ToLower(lang)
	if lang == "" {
		return "fr"
	}
	return lang
}

// nodeText is the fallback body text when readability finds no article
func nodeText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "nav", "header", "footer", "head":
			return ""
		}
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
			continue
		}
		if child := nodeText(c); child != "" {
			if text.Len() > 0 {
				text.WriteString(" ")
			}
			text.WriteString(child)
		}
	}
	return text.String()
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
