package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArticleStatus is the processing state of a scraped article
type ArticleStatus string

const (
	ArticleStatusPending   ArticleStatus = "pending"
	ArticleStatusExtracted ArticleStatus = "extracted"
	ArticleStatusFailed    ArticleStatus = "failed"
	ArticleStatusSkipped   ArticleStatus = "skipped"
	ArticleStatusReviewed  ArticleStatus = "reviewed"
)

// articleTransitions lists the forward moves of the status machine.
// Resetting to pending is only done by the reprocess path and bypasses this table.
var articleTransitions = map[ArticleStatus][]ArticleStatus{
	ArticleStatusPending:   {ArticleStatusExtracted, ArticleStatusFailed, ArticleStatusSkipped},
	ArticleStatusExtracted: {ArticleStatusReviewed, ArticleStatusSkipped},
}

// CanTransitionTo reports whether the status machine allows moving from s to next
func (s ArticleStatus) CanTransitionTo(next ArticleStatus) bool {
	for _, allowed := range articleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a status change is not allowed
type ErrInvalidTransition struct {
	From ArticleStatus
	To   ArticleStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid article status transition %s -> %s", e.From, e.To)
}

// Article is a scraped text unit waiting for (or done with) extraction
type Article struct {
	ID               uuid.UUID     `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	SourceName       string        `json:"source_name" db:"source_name" gorm:"index"`
	SourceURL        string        `json:"source_url" db:"source_url" gorm:"uniqueIndex;not null"`
	Title            string        `json:"title" db:"title"`
	PublishedDate    *time.Time    `json:"published_date" db:"published_date"`
	ScrapedDate      time.Time     `json:"scraped_date" db:"scraped_date"`
	ArticleText      string        `json:"article_text" db:"article_text" gorm:"type:text"`
	Language         string        `json:"language" db:"language" gorm:"default:fr"`
	RawContentHash   string        `json:"raw_content_hash" db:"raw_content_hash" gorm:"index"`
	ProcessingStatus ArticleStatus `json:"processing_status" db:"processing_status" gorm:"index;not null;default:pending"`
	ErrorMessage     string        `json:"error_message" db:"error_message" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Article model
func (Article) TableName() string {
	return "articles"
}

// BeforeCreate assigns a fresh identifier
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	if a.ProcessingStatus == "" {
		a.ProcessingStatus = ArticleStatusPending
	}
	return nil
}
