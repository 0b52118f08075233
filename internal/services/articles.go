package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"miim/internal/models"

	"gorm.io/gorm"
)

// ArticlesService manages the article status machine
type ArticlesService struct {
	db *gorm.DB
}

// NewArticlesService creates a new articles service
func NewArticlesService(db *gorm.DB) *ArticlesService {
	return &ArticlesService{db: db}
}

// ListPending returns up to limit pending articles, oldest scrape first
func (as *ArticlesService) ListPending(ctx context.Context, limit int) ([]models.Article, error) {
	var articles []models.Article
	query := as.db.WithContext(ctx).
		Where("processing_status = ?", models.ArticleStatusPending).
		Order("scraped_date ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending articles: %w", err)
	}
	return articles, nil
}

// SetStatus moves the article to status, refusing transitions the status machine forbids.
// The reason is stored as the error message and cleared when empty.
func (as *ArticlesService) SetStatus(ctx context.Context, article *models.Article, status models.ArticleStatus, reason string) error {
	if !article.ProcessingStatus.CanTransitionTo(status) {
		return &models.ErrInvalidTransition{From: article.ProcessingStatus, To: status}
	}

	res := as.db.WithContext(ctx).Model(&models.Article{}).
		Where("id = ? AND processing_status = ?", article.ID, article.ProcessingStatus).
		Updates(map[string]interface{}{
			"processing_status": status,
			"error_message":     reason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update article %s status: %w", article.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("article %s is no longer %s", article.ID, article.ProcessingStatus)
	}

	article.ProcessingStatus = status
	article.ErrorMessage = reason
	return nil
}

// MarkFailed records a per-article failure; it only logs if the status write itself fails
func (as *ArticlesService) MarkFailed(ctx context.Context, article *models.Article, reason string) {
	if err := as.SetStatus(ctx, article, models.ArticleStatusFailed, reason); err != nil {
		log.Printf("❌ Could not mark article %s failed (%s): %v", article.ID, reason, err)
	}
}

// ResetForReprocessing moves every non-pending article back to pending and clears its error
func (as *ArticlesService) ResetForReprocessing(ctx context.Context) (int64, error) {
	res := as.db.WithContext(ctx).Model(&models.Article{}).
		Where("processing_status <> ?", models.ArticleStatusPending).
		Updates(map[string]interface{}{
			"processing_status": models.ArticleStatusPending,
			"error_message":     "",
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset articles: %w", res.Error)
	}
	log.Printf("🔄 Reset %d articles to pending", res.RowsAffected)
	return res.RowsAffected, nil
}

// IsDuplicate reports whether an article with the same URL or content hash is stored
func (as *ArticlesService) IsDuplicate(ctx context.Context, sourceURL, contentHash string) (bool, error) {
	var existing models.Article
	query := as.db.WithContext(ctx).Select("id").Where("source_url = ?", sourceURL)
	if contentHash != "" {
		query = query.Or("raw_content_hash = ?", contentHash)
	}
	err := query.First(&existing).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// Create stores a new pending article; a concurrent duplicate URL is reported as not created
func (as *ArticlesService) Create(ctx context.Context, article *models.Article) (bool, error) {
	article.ProcessingStatus = models.ArticleStatusPending
	err := as.db.WithContext(ctx).Create(article).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert article %s: %w", article.SourceURL, err)
	}
	return true, nil
}

// StatusCounts returns the number of articles per processing status
func (as *ArticlesService) StatusCounts(ctx context.Context) (map[models.ArticleStatus]int64, error) {
	var rows []struct {
		ProcessingStatus models.ArticleStatus
		Count            int64
	}
	err := as.db.WithContext(ctx).Model(&models.Article{}).
		Select("processing_status, COUNT(*) AS count").
		Group("processing_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ArticleStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.ProcessingStatus] = row.Count
	}
	return counts, nil
}
