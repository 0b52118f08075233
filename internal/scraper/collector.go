package scraper

import (
	"context"
	"log"
	"time"

	"miim/internal/models"
	"miim/internal/services"

	"gorm.io/gorm"
)

// Scraper run statuses
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// RunStats counts the outcome of one source scrape
type RunStats struct {
	Source     string
	Found      int
	Irrelevant int
	New        int
	Duplicate  int
	Duration   time.Duration
	Err        error
}

// Collector scrapes every registered source into pending articles
type Collector struct {
	db       *gorm.DB
	registry *Registry
	articles *services.ArticlesService
	filter   *RelevanceFilter
}

var _ services.ArticleCollector = (*Collector)(nil)

// NewCollector creates a collector over the registry's sources
func NewCollector(db *gorm.DB, registry *Registry, filter *RelevanceFilter) *Collector {
	if filter == nil {
		filter = NewRelevanceFilter(nil, 0)
	}
	return &Collector{
		db:       db,
		registry: registry,
		articles: services.NewArticlesService(db),
		filter:   filter,
	}
}

// Collect runs every source in name order and returns the number of new articles.
// A failing source is logged and recorded; only cancellation stops the loop.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	total := 0
	for _, source := range c.registry.Sources() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		stats := c.CollectSource(ctx, source)
		total += stats.New
	}
	return total, nil
}

// CollectSource scrapes one source, keeps relevant non-duplicate articles and logs the run
func (c *Collector) CollectSource(ctx context.Context, source Source) RunStats {
	start := time.Now()
	stats := RunStats{Source: source.Name()}

	scraped, err := source.Scrape(ctx)
	if err != nil {
		log.Printf("❌ Scraper %s failed: %v", source.Name(), err)
		stats.Err = err
	}

	for _, item := range scraped {
		if !c.filter.IsRelevant(item.Text) {
			stats.Irrelevant++
			continue
		}
		stats.Found++

		created, err := c.store(ctx, item)
		if err != nil {
			log.Printf("⚠️  %s: failed to store %s: %v", source.Name(), item.URL, err)
			continue
		}
		if created {
			stats.New++
		} else {
			stats.Duplicate++
		}
	}

	stats.Duration = time.Since(start)
	c.logRun(ctx, stats)
	log.Printf("📰 %s: found=%d new=%d duplicates=%d irrelevant=%d (%.1fs)",
		stats.Source, stats.Found, stats.New, stats.Duplicate, stats.Irrelevant, stats.Duration.Seconds())
	return stats
}

func (c *Collector) store(ctx context.Context, item ScrapedArticle) (bool, error) {
	sourceURL := CanonicalizeURL(item.URL)
	hash := ContentHash(item.Text)

	duplicate, err := c.articles.IsDuplicate(ctx, sourceURL, hash)
	if err != nil {
		return false, err
	}
	if duplicate {
		return false, nil
	}

	title := item.Title
	if len([]rune(title)) > 500 {
		title = string([]rune(title)[:500])
	}
	return c.articles.Create(ctx, &models.Article{
		SourceName:     item.SourceName,
		SourceURL:      sourceURL,
		Title:          title,
		PublishedDate:  item.PublishedDate,
		ScrapedDate:    time.Now().UTC(),
		ArticleText:    item.Text,
		Language:       item.Language,
		RawContentHash: hash,
	})
}

func (c *Collector) logRun(ctx context.Context, stats RunStats) {
	run := models.ScraperRun{
		SourceName:            stats.Source,
		RunDate:               time.Now().UTC(),
		ArticlesFound:         stats.Found,
		ArticlesNew:           stats.New,
		ArticlesDuplicate:     stats.Duplicate,
		ProcessingTimeSeconds: float64(stats.Duration.Milliseconds()) / 1000,
		Status:                RunStatusSuccess,
	}
	if stats.Err != nil {
		run.Status = RunStatusError
		run.ErrorMessage = stats.Err.Error()
	}
	if err := c.db.WithContext(ctx).Create(&run).Error; err != nil {
		log.Printf("⚠️  Failed to log scraper run for %s: %v", stats.Source, err)
	}
}
