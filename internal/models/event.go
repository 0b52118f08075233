package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event types
const (
	EventNewFactory      = "new_factory"
	EventPartnership     = "partnership"
	EventInvestment      = "investment"
	EventAcquisition     = "acquisition"
	EventExportMilestone = "export_milestone"
	EventExpansion       = "expansion"
	EventHiring          = "hiring"
	EventProductLaunch   = "product_launch"
	EventCertification   = "certification"
	EventOther           = "other"
)

// EventTypes is the closed set of accepted event types
var EventTypes = []string{
	EventNewFactory, EventPartnership, EventInvestment, EventAcquisition, EventExportMilestone,
	EventExpansion, EventHiring, EventProductLaunch, EventCertification, EventOther,
}

// Event is a discrete occurrence tied to one company. Events are insert-only.
type Event struct {
	ID                  uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CompanyID           uuid.UUID `json:"company_id" db:"company_id" gorm:"type:uuid;not null;index"`
	EventType           string    `json:"event_type" db:"event_type" gorm:"not null;default:other"`
	Title               string    `json:"title" db:"title"`
	Description         string    `json:"description" db:"description" gorm:"type:text"`
	EventDate           time.Time `json:"event_date" db:"event_date"`
	City                string    `json:"city" db:"city"`
	InvestmentAmountMAD *float64  `json:"investment_amount_mad" db:"investment_amount_mad" gorm:"column:investment_amount_mad"`
	SourceURL           string    `json:"source_url" db:"source_url"`
	ConfidenceScore     float64   `json:"confidence_score" db:"confidence_score" gorm:"default:0.0"`
	CreatedAt           time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Event model
func (Event) TableName() string {
	return "events"
}

// BeforeCreate assigns a fresh identifier
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
