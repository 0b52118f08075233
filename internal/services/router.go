package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"miim/internal/extraction"
	"miim/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Route is the outcome of the confidence gate
type Route string

const (
	RouteAutoApprove Route = "auto_approve"
	RouteReview      Route = "review"
	RouteDiscard     Route = "discard"
)

// Reasons recorded on review items and skipped articles
const (
	ReasonBetweenThresholds = "confidence between thresholds"
	ReasonBelowThreshold    = "confidence below minimum threshold"
)

// Thresholds partition [0,1] into the three routes
type Thresholds struct {
	AutoApprove float64 `yaml:"auto_approve" json:"auto_approve"`
	ReviewQueue float64 `yaml:"review_queue" json:"review_queue"`
	Discard     float64 `yaml:"discard" json:"discard"`
}

// DefaultThresholds returns the production gate values
func DefaultThresholds() Thresholds {
	return Thresholds{AutoApprove: 0.85, ReviewQueue: 0.65, Discard: 0.0}
}

// Validate checks discard < review_queue < auto_approve within [0,1]
func (t Thresholds) Validate() error {
	if t.Discard < 0 || t.AutoApprove > 1 {
		return fmt.Errorf("thresholds must lie within [0,1]: %+v", t)
	}
	if !(t.Discard < t.ReviewQueue && t.ReviewQueue < t.AutoApprove) {
		return fmt.Errorf("thresholds must satisfy discard < review_queue < auto_approve, got %.2f / %.2f / %.2f",
			t.Discard, t.ReviewQueue, t.AutoApprove)
	}
	return nil
}

// Classify maps a confidence score to its route
func (t Thresholds) Classify(confidence float64) Route {
	switch {
	case confidence >= t.AutoApprove:
		return RouteAutoApprove
	case confidence >= t.ReviewQueue:
		return RouteReview
	default:
		return RouteDiscard
	}
}

// ApplyStats counts the graph writes of one accepted extraction
type ApplyStats struct {
	CompaniesUpserted    int
	EventsCreated        int
	RelationshipsCreated int
	PrimaryCompanyID     *uuid.UUID
	PrimaryEventID       *uuid.UUID
}

// RouteOutcome describes what the router did with one extraction
type RouteOutcome struct {
	Route        Route
	Status       models.ArticleStatus
	Apply        ApplyStats
	ReviewItemID *uuid.UUID
}

// ConfidenceRouter sends each extraction to the graph, the review queue or nowhere
type ConfidenceRouter struct {
	db         *gorm.DB
	writer     *GraphWriter
	articles   *ArticlesService
	thresholds Thresholds
}

// NewConfidenceRouter creates a router; thresholds must already be valid
func NewConfidenceRouter(db *gorm.DB, writer *GraphWriter, articles *ArticlesService, thresholds Thresholds) (*ConfidenceRouter, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &ConfidenceRouter{db: db, writer: writer, articles: articles, thresholds: thresholds}, nil
}

// Thresholds returns the gate values in use
func (r *ConfidenceRouter) Thresholds() Thresholds {
	return r.thresholds
}

// Route gates the extraction on its overall confidence and updates the article status.
// The returned error is only set when the article status itself could not be written.
func (r *ConfidenceRouter) Route(ctx context.Context, article *models.Article, resultID *uuid.UUID, result *extraction.Result) (*RouteOutcome, error) {
	outcome := &RouteOutcome{Route: r.thresholds.Classify(result.OverallConfidence)}

	switch outcome.Route {
	case RouteAutoApprove:
		outcome.Apply = r.ApplyExtraction(ctx, article, result)
		outcome.Status = models.ArticleStatusExtracted
		return outcome, r.articles.SetStatus(ctx, article, models.ArticleStatusExtracted, "")

	case RouteReview:
		itemID, err := r.enqueueReview(ctx, article, resultID, result)
		if err != nil {
			log.Printf("❌ Failed to queue article %s for review: %v", article.ID, err)
			outcome.Status = models.ArticleStatusFailed
			return outcome, r.articles.SetStatus(ctx, article, models.ArticleStatusFailed, fmt.Sprintf("failed to queue for review: %v", err))
		}
		outcome.ReviewItemID = itemID
		outcome.Status = models.ArticleStatusExtracted
		return outcome, r.articles.SetStatus(ctx, article, models.ArticleStatusExtracted, "")

	default:
		outcome.Status = models.ArticleStatusSkipped
		return outcome, r.articles.SetStatus(ctx, article, models.ArticleStatusSkipped, ReasonBelowThreshold)
	}
}

// ApplyExtraction writes an accepted extraction into the graph: every named entity is
// upserted, primary subjects get an event, and relationships are inserted once with
// the accumulated name map. Used by both the auto route and review approval.
func (r *ConfidenceRouter) ApplyExtraction(ctx context.Context, article *models.Article, result *extraction.Result) ApplyStats {
	var stats ApplyStats
	nameToID := make(map[string]uuid.UUID)

	for _, entity := range result.NamedEntities() {
		confidence := entity.Confidence(result.OverallConfidence)

		companyID := r.writer.UpsertCompany(ctx, entity, article.ID, confidence)
		if companyID == nil {
			continue
		}
		stats.CompaniesUpserted++
		nameToID[entity.CompanyName] = *companyID

		if !entity.IsPrimary() {
			continue
		}
		if stats.PrimaryCompanyID == nil {
			stats.PrimaryCompanyID = companyID
		}
		if eventID := r.writer.InsertEvent(ctx, entity, *companyID, article.SourceURL, confidence); eventID != nil {
			stats.EventsCreated++
			if stats.PrimaryEventID == nil {
				stats.PrimaryEventID = eventID
			}
		}
	}

	if len(result.Relationships) > 0 {
		stats.RelationshipsCreated = r.writer.InsertRelationships(ctx, result.Relationships, nameToID, article.SourceURL, result.OverallConfidence)
	}

	log.Printf("✅ Article %s: %d companies, %d events, %d relationships",
		article.ID, stats.CompaniesUpserted, stats.EventsCreated, stats.RelationshipsCreated)
	return stats
}

func (r *ConfidenceRouter) enqueueReview(ctx context.Context, article *models.Article, resultID *uuid.UUID, result *extraction.Result) (*uuid.UUID, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding extraction: %w", err)
	}

	item := models.ReviewQueueItem{
		ArticleID:          article.ID,
		ExtractionResultID: resultID,
		ExtractedData:      datatypes.JSON(payload),
		ConfidenceScore:    result.OverallConfidence,
		ReasonFlagged:      ReasonBetweenThresholds,
		Status:             models.ReviewStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item.ID, nil
}
