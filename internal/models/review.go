package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Review queue statuses
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
	ReviewStatusEdited   = "edited"
)

// ReviewQueueItem holds an extraction waiting for a human decision
type ReviewQueueItem struct {
	ID                 uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID          uuid.UUID      `json:"article_id" db:"article_id" gorm:"type:uuid;not null;index"`
	ExtractionResultID *uuid.UUID     `json:"extraction_result_id" db:"extraction_result_id" gorm:"type:uuid"`
	ExtractedData      datatypes.JSON `json:"extracted_data" db:"extracted_data"`
	ConfidenceScore    float64        `json:"confidence_score" db:"confidence_score"`
	ReasonFlagged      string         `json:"reason_flagged" db:"reason_flagged"`
	Status             string         `json:"status" db:"status" gorm:"index;not null;default:pending"`
	ReviewerNotes      string         `json:"reviewer_notes" db:"reviewer_notes" gorm:"type:text"`
	ReviewedAt         *time.Time     `json:"reviewed_at" db:"reviewed_at"`
	LinkedCompanyID    *uuid.UUID     `json:"linked_company_id" db:"linked_company_id" gorm:"type:uuid"`
	LinkedEventID      *uuid.UUID     `json:"linked_event_id" db:"linked_event_id" gorm:"type:uuid"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	Article Article `json:"article,omitempty" gorm:"foreignKey:ArticleID;references:ID"`
}

// TableName sets the table name for the ReviewQueueItem model
func (ReviewQueueItem) TableName() string {
	return "review_queue"
}

// BeforeCreate assigns a fresh identifier
func (r *ReviewQueueItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	if r.Status == "" {
		r.Status = ReviewStatusPending
	}
	return nil
}
