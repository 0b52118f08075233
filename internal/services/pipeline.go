package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"miim/internal/extraction"
	"miim/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReasonNoEntities marks articles the model found nothing in
const ReasonNoEntities = "no entities extracted"

// ArticleCollector fills the articles table with new pending rows
type ArticleCollector interface {
	Collect(ctx context.Context) (int, error)
}

// PipelineConfig holds orchestrator settings
type PipelineConfig struct {
	BatchSize int                `yaml:"batch_size"`
	Pricing   extraction.Pricing `yaml:"pricing"`
}

// DefaultPipelineConfig returns default pipeline settings
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize: 50,
		Pricing:   extraction.DefaultPricing(),
	}
}

// PipelineStats summarizes one extraction batch
type PipelineStats struct {
	Processed            int     `json:"processed"`
	EntitiesUpserted     int     `json:"entities_upserted"`
	EventsCreated        int     `json:"events_created"`
	RelationshipsCreated int     `json:"relationships_created"`
	Approved             int     `json:"approved"`
	ReviewQueue          int     `json:"review_queue"`
	Skipped              int     `json:"skipped"`
	Failed               int     `json:"failed"`
	TotalCostUSD         float64 `json:"total_cost_usd"`
}

// RunOptions selects the phases of a pipeline run
type RunOptions struct {
	Scrape    bool
	Extract   bool
	Reprocess bool
	Limit     int
}

// PipelineService is the top-level control loop: pending article -> extractor -> router
type PipelineService struct {
	db        *gorm.DB
	extractor extraction.Extractor
	router    *ConfidenceRouter
	articles  *ArticlesService
	collector ArticleCollector
	config    PipelineConfig
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(db *gorm.DB, extractor extraction.Extractor, router *ConfidenceRouter, config PipelineConfig) *PipelineService {
	return &PipelineService{
		db:        db,
		extractor: extractor,
		router:    router,
		articles:  NewArticlesService(db),
		config:    config,
	}
}

// WithCollector attaches the scrape phase
func (ps *PipelineService) WithCollector(collector ArticleCollector) *PipelineService {
	ps.collector = collector
	return ps
}

// Run executes the selected phases in order: reprocess reset, scrape, extract
func (ps *PipelineService) Run(ctx context.Context, opts RunOptions) (*PipelineStats, error) {
	if opts.Reprocess {
		if _, err := ps.articles.ResetForReprocessing(ctx); err != nil {
			return nil, err
		}
		opts.Extract = true
	}

	if opts.Scrape {
		if ps.collector == nil {
			return nil, errors.New("scrape requested but no collector is configured")
		}
		added, err := ps.collector.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("scrape phase failed: %w", err)
		}
		log.Printf("📰 Scrape phase stored %d new articles", added)
	}

	if !opts.Extract {
		return &PipelineStats{}, nil
	}
	return ps.ProcessPending(ctx, opts.Limit)
}

// ProcessPending extracts and routes up to limit pending articles, one at a time.
// Per-article failures are recorded on the article; only listing failures and
// cancellation are returned.
func (ps *PipelineService) ProcessPending(ctx context.Context, limit int) (*PipelineStats, error) {
	if limit <= 0 {
		limit = ps.config.BatchSize
	}

	articles, err := ps.articles.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	log.Printf("🚀 Processing %d pending articles", len(articles))

	stats := &PipelineStats{}
	for i := range articles {
		if err := ctx.Err(); err != nil {
			log.Printf("🛑 Pipeline cancelled after %d articles", stats.Processed)
			return stats, err
		}
		ps.processArticle(ctx, &articles[i], stats)
		stats.Processed++
	}

	log.Printf("📊 Batch done: processed=%d approved=%d review=%d skipped=%d failed=%d cost=$%.4f",
		stats.Processed, stats.Approved, stats.ReviewQueue, stats.Skipped, stats.Failed, stats.TotalCostUSD)
	return stats, nil
}

func (ps *PipelineService) processArticle(ctx context.Context, article *models.Article, stats *PipelineStats) {
	start := time.Now()
	result, err := ps.extractor.Extract(ctx, article.ArticleText)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			// left pending for the next run
			return
		}
		log.Printf("❌ Extraction failed for article %s: %v", article.ID, err)
		ps.articles.MarkFailed(ctx, article, err.Error())
		stats.Failed++
		return
	}

	resultID, saveErr := ps.saveExtractionResult(ctx, article, result, elapsed)

	// The call was paid for whatever happens next
	stats.TotalCostUSD += ps.logCost(ctx, article, resultID, result)

	if saveErr != nil {
		log.Printf("❌ Failed to save extraction result for article %s: %v", article.ID, saveErr)
		ps.articles.MarkFailed(ctx, article, fmt.Sprintf("failed to save extraction result: %v", saveErr))
		stats.Failed++
		return
	}

	if len(result.Entities) == 0 {
		ps.articles.MarkFailed(ctx, article, ReasonNoEntities)
		stats.Failed++
		return
	}

	outcome, err := ps.router.Route(ctx, article, resultID, result)
	if err != nil {
		log.Printf("❌ Failed to record routing of article %s: %v", article.ID, err)
	}

	stats.EntitiesUpserted += outcome.Apply.CompaniesUpserted
	stats.EventsCreated += outcome.Apply.EventsCreated
	stats.RelationshipsCreated += outcome.Apply.RelationshipsCreated

	switch {
	case outcome.Status == models.ArticleStatusFailed:
		stats.Failed++
	case outcome.Route == RouteAutoApprove:
		stats.Approved++
	case outcome.Route == RouteReview:
		stats.ReviewQueue++
	default:
		stats.Skipped++
	}
}

func (ps *PipelineService) saveExtractionResult(ctx context.Context, article *models.Article, result *extraction.Result, elapsed time.Duration) (*uuid.UUID, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding extraction: %w", err)
	}

	record := models.ExtractionResult{
		ArticleID:        article.ID,
		ExtractionData:   datatypes.JSON(payload),
		ModelUsed:        result.Model,
		PromptVersion:    result.PromptVersion,
		InputTokens:      result.InputTokens,
		OutputTokens:     result.OutputTokens,
		ConfidenceScore:  result.OverallConfidence,
		ProcessingTimeMS: elapsed.Milliseconds(),
	}
	if err := ps.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record.ID, nil
}

// logCost records the call price; a failed write is logged and still counted in the batch total
func (ps *PipelineService) logCost(ctx context.Context, article *models.Article, resultID *uuid.UUID, result *extraction.Result) float64 {
	cost := ps.config.Pricing.Cost(result.InputTokens, result.OutputTokens)
	articleID := article.ID

	entry := models.PipelineCost{
		ArticleID:          &articleID,
		ExtractionResultID: resultID,
		Model:              result.Model,
		InputTokens:        result.InputTokens,
		OutputTokens:       result.OutputTokens,
		CostUSD:            cost,
	}
	if err := ps.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("⚠️  Failed to log cost for article %s: %v", article.ID, err)
	}
	return cost
}

// ResetForReprocessing moves every non-pending article back to pending
func (ps *PipelineService) ResetForReprocessing(ctx context.Context) (int64, error) {
	return ps.articles.ResetForReprocessing(ctx)
}

// TotalCost sums every logged LLM call
func (ps *PipelineService) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := ps.db.WithContext(ctx).Model(&models.PipelineCost{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Scan(&total).Error
	return total, err
}
