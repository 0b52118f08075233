package services

import (
	"context"
	"database/sql"
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

var (
	// ErrReviewItemNotFound is returned for unknown review ids
	ErrReviewItemNotFound = errors.New("review item not found")
	// ErrReviewItemClosed is returned when the item was already decided
	ErrReviewItemClosed = errors.New("review item already reviewed")
)

// ReviewStats summarizes the review queue
type ReviewStats struct {
	Pending              int64   `json:"pending"`
	ApprovedRecent       int64   `json:"approved_recent"`
	RejectedRecent       int64   `json:"rejected_recent"`
	AvgPendingConfidence float64 `json:"avg_pending_confidence"`
	Days                 int     `json:"days"`
}

// ReviewService handles human decisions on flagged extractions
type ReviewService struct {
	db       *gorm.DB
	router   *ConfidenceRouter
	articles *ArticlesService
}

// NewReviewService creates a new review service
func NewReviewService(db *gorm.DB, router *ConfidenceRouter) *ReviewService {
	return &ReviewService{db: db, router: router, articles: NewArticlesService(db)}
}

// List returns review items with the given status (all when empty), highest confidence first
func (rs *ReviewService) List(ctx context.Context, status string, limit int) ([]models.ReviewQueueItem, error) {
	var items []models.ReviewQueueItem
	query := rs.db.WithContext(ctx).Preload("Article").Order("confidence_score DESC, created_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}
	return items, nil
}

// Get loads one review item with its article
func (rs *ReviewService) Get(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	var item models.ReviewQueueItem
	err := rs.db.WithContext(ctx).Preload("Article").First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReviewItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Stats counts pending items and decisions taken in the last days days
func (rs *ReviewService) Stats(ctx context.Context, days int) (*ReviewStats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	stats := &ReviewStats{Days: days}

	db := rs.db.WithContext(ctx).Model(&models.ReviewQueueItem{})
	if err := db.Where("status = ?", models.ReviewStatusPending).Count(&stats.Pending).Error; err != nil {
		return nil, err
	}

	db = rs.db.WithContext(ctx).Model(&models.ReviewQueueItem{})
	if err := db.Where("status IN ? AND reviewed_at >= ?", []string{models.ReviewStatusApproved, models.ReviewStatusEdited}, since).
		Count(&stats.ApprovedRecent).Error; err != nil {
		return nil, err
	}

	db = rs.db.WithContext(ctx).Model(&models.ReviewQueueItem{})
	if err := db.Where("status = ? AND reviewed_at >= ?", models.ReviewStatusRejected, since).
		Count(&stats.RejectedRecent).Error; err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := rs.db.WithContext(ctx).Model(&models.ReviewQueueItem{}).
		Where("status = ?", models.ReviewStatusPending).
		Select("AVG(confidence_score)").Row().Scan(&avg); err != nil {
		return nil, err
	}
	stats.AvgPendingConfidence = avg.Float64
	return stats, nil
}

// Approve commits the queued extraction to the graph through the same path as
// auto-approval. A non-nil edited result replaces the payload and marks the item edited.
// The item is claimed before any graph write, so concurrent approvals apply it once.
func (rs *ReviewService) Approve(ctx context.Context, id uuid.UUID, edited *extraction.Result) (*ApplyStats, error) {
	item, err := rs.openItem(ctx, id)
	if err != nil {
		return nil, err
	}

	status := models.ReviewStatusApproved
	result := edited
	claim := map[string]interface{}{}
	if edited != nil {
		status = models.ReviewStatusEdited
		payload, err := json.Marshal(edited)
		if err != nil {
			return nil, fmt.Errorf("encoding edited extraction: %w", err)
		}
		claim["extracted_data"] = datatypes.JSON(payload)
	} else {
		result = &extraction.Result{}
		if err := json.Unmarshal(item.ExtractedData, result); err != nil {
			return nil, fmt.Errorf("decoding queued extraction: %w", err)
		}
	}

	if err := rs.claim(ctx, item.ID, status, claim); err != nil {
		return nil, err
	}

	stats := rs.router.ApplyExtraction(ctx, &item.Article, result)

	err = rs.db.WithContext(ctx).Model(&models.ReviewQueueItem{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"linked_company_id": stats.PrimaryCompanyID,
			"linked_event_id":   stats.PrimaryEventID,
		}).Error
	if err != nil {
		log.Printf("⚠️  Review %s approved but links not saved: %v", item.ID, err)
	}

	if err := rs.articles.SetStatus(ctx, &item.Article, models.ArticleStatusReviewed, ""); err != nil {
		log.Printf("⚠️  Review %s approved but article status not updated: %v", item.ID, err)
	}

	log.Printf("👍 Review item %s %s", item.ID, status)
	return &stats, nil
}

// Reject closes the item with notes and moves its article to skipped
func (rs *ReviewService) Reject(ctx context.Context, id uuid.UUID, notes string) error {
	item, err := rs.openItem(ctx, id)
	if err != nil {
		return err
	}

	if err := rs.claim(ctx, item.ID, models.ReviewStatusRejected, map[string]interface{}{"reviewer_notes": notes}); err != nil {
		return err
	}

	if err := rs.articles.SetStatus(ctx, &item.Article, models.ArticleStatusSkipped, "rejected in review"); err != nil {
		log.Printf("⚠️  Review %s rejected but article status not updated: %v", item.ID, err)
	}

	log.Printf("👎 Review item %s rejected", item.ID)
	return nil
}

func (rs *ReviewService) openItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	item, err := rs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ReviewStatusPending {
		return nil, fmt.Errorf("%w (status %s)", ErrReviewItemClosed, item.Status)
	}
	return item, nil
}

// claim moves a pending item to status in one guarded UPDATE. Losing a race to
// another reviewer returns ErrReviewItemClosed.
func (rs *ReviewService) claim(ctx context.Context, id uuid.UUID, status string, extra map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":      status,
		"reviewed_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := rs.db.WithContext(ctx).Model(&models.ReviewQueueItem{}).
		Where("id = ? AND status = ?", id, models.ReviewStatusPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update review item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w (claimed by another reviewer)", ErrReviewItemClosed)
	}
	return nil
}
