// Package app wires configuration into the services the binaries run
package app

import (
	"fmt"

	"miim/internal/config"
	"miim/internal/extraction"
	"miim/internal/scraper"
	"miim/internal/services"
	"miim/internal/worker"

	"gorm.io/gorm"
)

// App holds the shared services over one database handle
type App struct {
	DB       *gorm.DB
	Config   config.Config
	Articles *services.ArticlesService
	Router   *services.ConfidenceRouter
	Review   *services.ReviewService
}

// New builds the graph write path; invalid thresholds are an error
func New(db *gorm.DB, cfg config.Config) (*App, error) {
	articles := services.NewArticlesService(db)
	writer := services.NewGraphWriter(db, services.NewCompanyMatcher(db))
	router, err := services.NewConfidenceRouter(db, writer, articles, cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("invalid confidence thresholds: %w", err)
	}

	return &App{
		DB:       db,
		Config:   cfg,
		Articles: articles,
		Router:   router,
		Review:   services.NewReviewService(db, router),
	}, nil
}

// Collector builds the scraper over the configured sources
func (a *App) Collector() (*scraper.Collector, error) {
	fetcher := scraper.NewPageFetcher(a.Config.Scraper.Timeout, a.Config.Scraper.RateLimit)
	registry, err := scraper.RegistryFromConfig(a.Config.Scraper.Sources, fetcher)
	if err != nil {
		return nil, fmt.Errorf("invalid scraper sources: %w", err)
	}
	filter := scraper.NewRelevanceFilter(a.Config.Scraper.Keywords, a.Config.Scraper.MinKeywordMatches)
	return scraper.NewCollector(a.DB, registry, filter), nil
}

// Extractor creates the LLM client; a missing API key is an error
func (a *App) Extractor() (extraction.Extractor, error) {
	return extraction.NewClient(a.Config.ExtractionConfig())
}

// Pipeline builds the orchestrator with the scrape phase attached.
// extractor may be nil when only scraping.
func (a *App) Pipeline(extractor extraction.Extractor) (*services.PipelineService, error) {
	collector, err := a.Collector()
	if err != nil {
		return nil, err
	}
	pipeline := services.NewPipelineService(a.DB, extractor, a.Router, a.Config.PipelineServiceConfig())
	return pipeline.WithCollector(collector), nil
}

// Quality creates a sweep with the configured settings
func (a *App) Quality(commit bool) *services.QualityService {
	qc := a.Config.Quality
	qc.Commit = commit
	return services.NewQualityService(a.DB, qc)
}

// Worker builds the background runner: extraction batches plus dry-run QA sweeps
func (a *App) Worker(extractor extraction.Extractor) (*worker.WorkerService, error) {
	pipeline, err := a.Pipeline(extractor)
	if err != nil {
		return nil, err
	}
	newQuality := func() worker.QualityRunner { return a.Quality(false) }
	return worker.NewWorkerService(pipeline, newQuality, worker.Config{
		Interval: a.Config.Worker.Interval,
		Scrape:   len(a.Config.Scraper.Sources) > 0,
		Limit:    a.Config.Pipeline.BatchSize,
	}), nil
}
