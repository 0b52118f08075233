package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExtractionResult is the append-only audit record of one LLM call
type ExtractionResult struct {
	ID               uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID        uuid.UUID      `json:"article_id" db:"article_id" gorm:"type:uuid;not null;index"`
	ExtractionData   datatypes.JSON `json:"extraction_data" db:"extraction_data"`
	ModelUsed        string         `json:"model_used" db:"model_used"`
	PromptVersion    string         `json:"prompt_version" db:"prompt_version"`
	InputTokens      int            `json:"input_tokens" db:"input_tokens"`
	OutputTokens     int            `json:"output_tokens" db:"output_tokens"`
	ConfidenceScore  float64        `json:"confidence_score" db:"confidence_score"`
	ProcessingTimeMS int64          `json:"processing_time_ms" db:"processing_time_ms" gorm:"column:processing_time_ms"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the ExtractionResult model
func (ExtractionResult) TableName() string {
	return "extraction_results"
}

// BeforeCreate assigns a fresh identifier
func (e *ExtractionResult) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}

// PipelineCost records token usage and price of one LLM call
type PipelineCost struct {
	ID                 uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ArticleID          *uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;index"`
	ExtractionResultID *uuid.UUID `json:"extraction_result_id" db:"extraction_result_id" gorm:"type:uuid"`
	Model              string     `json:"model" db:"model"`
	InputTokens        int        `json:"input_tokens" db:"input_tokens"`
	OutputTokens       int        `json:"output_tokens" db:"output_tokens"`
	CostUSD            float64    `json:"cost_usd" db:"cost_usd" gorm:"column:cost_usd"`
	LoggedAt           time.Time  `json:"logged_at" db:"logged_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the PipelineCost model
func (PipelineCost) TableName() string {
	return "pipeline_costs"
}

// BeforeCreate assigns a fresh identifier
func (p *PipelineCost) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
