package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SourceConfig describes one news site: where its article lists live and which links are articles
type SourceConfig struct {
	Name         string   `yaml:"name"`
	ListingURLs  []string `yaml:"listing_urls"`
	LinkPattern  string   `yaml:"link_pattern"`
	LinkSelector string   `yaml:"link_selector"`
	MaxArticles  int      `yaml:"max_articles"`
	Language     string   `yaml:"language"`
}

// HTMLSource scrapes a site whose listing pages link to article pages
type HTMLSource struct {
	config  SourceConfig
	pattern *regexp.Regexp
	fetcher *PageFetcher
}

var _ Source = (*HTMLSource)(nil)

// NewHTMLSource validates the config and compiles its link pattern
func NewHTMLSource(config SourceConfig, fetcher *PageFetcher) (*HTMLSource, error) {
	if config.Name == "" {
		return nil, errors.New("source name is required")
	}
	if len(config.ListingURLs) == 0 {
		return nil, fmt.Errorf("source %s has no listing urls", config.Name)
	}
	if config.LinkSelector == "" {
		config.LinkSelector = "a[href]"
	}
	if config.MaxArticles <= 0 {
		config.MaxArticles = 30
	}
	if config.Language == "" {
		config.Language = "fr"
	}

	var pattern *regexp.Regexp
	if config.LinkPattern != "" {
		var err error
		if pattern, err = regexp.Compile(config.LinkPattern); err != nil {
			return nil, fmt.Errorf("source %s: invalid link pattern: %w", config.Name, err)
		}
	}
	return &HTMLSource{config: config, pattern: pattern, fetcher: fetcher}, nil
}

// Name returns the configured source name
func (s *HTMLSource) Name() string {
	return s.config.Name
}

// Scrape collects article links from every listing page and fetches each article.
// A failing page is logged and skipped; the error is only returned when no listing page loaded.
func (s *HTMLSource) Scrape(ctx context.Context) ([]ScrapedArticle, error) {
	links, err := s.ArticleURLs(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("🔗 %s: found %d article links", s.config.Name, len(links))

	var articles []ScrapedArticle
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return articles, err
		}

		page, err := s.fetcher.FetchArticle(ctx, link)
		if err != nil {
			log.Printf("⚠️  %s: failed to fetch article %s: %v", s.config.Name, link, err)
			continue
		}
		if page.Text == "" {
			continue
		}

		language := page.Language
		if language == "" {
			language = s.config.Language
		}
		articles = append(articles, ScrapedArticle{
			SourceName:    s.config.Name,
			URL:           link,
			Title:         page.Title,
			PublishedDate: page.PublishedAt,
			Text:          page.Text,
			Language:      language,
		})
	}
	return articles, nil
}

// ArticleURLs returns the canonical, de-duplicated article links of all listing pages
func (s *HTMLSource) ArticleURLs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var links []string
	var lastErr error
	loaded := 0

	for _, listing := range s.config.ListingURLs {
		raw, err := s.fetcher.Get(ctx, listing)
		if err != nil {
			log.Printf("⚠️  %s: failed to fetch listing %s: %v", s.config.Name, listing, err)
			lastErr = err
			continue
		}
		loaded++

		for _, link := range s.extractLinks(raw, listing) {
			if seen[link] {
				continue
			}
			seen[link] = true
			links = append(links, link)
			if len(links) >= s.config.MaxArticles {
				return links, nil
			}
		}
	}

	if loaded == 0 && lastErr != nil {
		return nil, fmt.Errorf("%s: no listing page could be fetched: %w", s.config.Name, lastErr)
	}
	return links, nil
}

func (s *HTMLSource) extractLinks(rawHTML, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		log.Printf("⚠️  %s: failed to parse listing %s: %v", s.config.Name, pageURL, err)
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find(s.config.LinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}

		resolved := base.ResolveReference(parsed)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if resolved.Host != base.Host {
			return
		}
		link := CanonicalizeURL(resolved.String())
		if s.pattern != nil && !s.pattern.MatchString(link) {
			return
		}
		links = append(links, link)
	})
	return links
}
