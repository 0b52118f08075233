package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quality log action types
const (
	QualityActionMerge         = "merge"
	QualityActionNullFill      = "null_fill"
	QualityActionNameNormalize = "name_normalize"
	QualityActionInfo          = "info"
)

// DataQualityLog records every action proposed by a quality sweep run
type DataQualityLog struct {
	ID         uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	RunID      uuid.UUID      `json:"run_id" db:"run_id" gorm:"type:uuid;not null;index"`
	ActionType string         `json:"action_type" db:"action_type" gorm:"not null"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	EntityID   *uuid.UUID     `json:"entity_id" db:"entity_id" gorm:"type:uuid"`
	Details    datatypes.JSON `json:"details" db:"details"`
	Applied    bool           `json:"applied" db:"applied" gorm:"default:false"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the DataQualityLog model
func (DataQualityLog) TableName() string {
	return "data_quality_log"
}

// BeforeCreate assigns a fresh identifier
func (l *DataQualityLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// ScraperRun summarizes one scrape of one source
type ScraperRun struct {
	ID                    uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	SourceName            string    `json:"source_name" db:"source_name" gorm:"index"`
	RunDate               time.Time `json:"run_date" db:"run_date"`
	ArticlesFound         int       `json:"articles_found" db:"articles_found"`
	ArticlesNew           int       `json:"articles_new" db:"articles_new"`
	ArticlesDuplicate     int       `json:"articles_duplicate" db:"articles_duplicate"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds" db:"processing_time_seconds"`
	Status                string    `json:"status" db:"status"`
	ErrorMessage          string    `json:"error_message" db:"error_message" gorm:"type:text"`
}

// TableName sets the table name for the ScraperRun model
func (ScraperRun) TableName() string {
	return "scraper_runs"
}

// BeforeCreate assigns a fresh identifier
func (r *ScraperRun) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
