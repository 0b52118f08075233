package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Relationship types
const (
	RelationshipClient       = "client"
	RelationshipSupplier     = "supplier"
	RelationshipPartner      = "partner"
	RelationshipSubsidiary   = "subsidiary"
	RelationshipParent       = "parent"
	RelationshipInvestor     = "investor"
	RelationshipJointVenture = "joint_venture"
	RelationshipCompetitor   = "competitor"
)

// RelationshipTypes is the closed set of accepted edge types
var RelationshipTypes = []string{
	RelationshipClient, RelationshipSupplier, RelationshipPartner, RelationshipSubsidiary,
	RelationshipParent, RelationshipInvestor, RelationshipJointVenture, RelationshipCompetitor,
}

// Relationship is a directed, typed edge between two companies.
// (source, target, type) is unique.
type Relationship struct {
	ID               uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	SourceCompanyID  uuid.UUID `json:"source_company_id" db:"source_company_id" gorm:"type:uuid;not null;uniqueIndex:idx_relationship_edge,priority:1"`
	TargetCompanyID  uuid.UUID `json:"target_company_id" db:"target_company_id" gorm:"type:uuid;not null;uniqueIndex:idx_relationship_edge,priority:2"`
	RelationshipType string    `json:"relationship_type" db:"relationship_type" gorm:"not null;uniqueIndex:idx_relationship_edge,priority:3"`
	Description      string    `json:"description" db:"description" gorm:"type:text"`
	SourceURL        string    `json:"source_url" db:"source_url"`
	ConfidenceScore  float64   `json:"confidence_score" db:"confidence_score" gorm:"default:0.0"`
	Status           string    `json:"status" db:"status" gorm:"default:active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Relationship model
func (Relationship) TableName() string {
	return "company_relationships"
}

// BeforeCreate assigns a fresh identifier
func (r *Relationship) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	if r.Status == "" {
		r.Status = "active"
	}
	return nil
}

// Partnership is the legacy, narrower partner table still read by older dashboards
type Partnership struct {
	ID              uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CompanyAID      uuid.UUID `json:"company_a_id" db:"company_a_id" gorm:"column:company_a_id;type:uuid;not null;index"`
	CompanyBID      uuid.UUID `json:"company_b_id" db:"company_b_id" gorm:"column:company_b_id;type:uuid;not null;index"`
	PartnershipType string    `json:"partnership_type" db:"partnership_type"`
	Description     string    `json:"description" db:"description" gorm:"type:text"`
	Status          string    `json:"status" db:"status" gorm:"default:Active"`
	SourceURL       string    `json:"source_url" db:"source_url"`
	ConfidenceScore float64   `json:"confidence_score" db:"confidence_score" gorm:"default:0.0"`
	CreatedAt       time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Partnership model
func (Partnership) TableName() string {
	return "partnerships"
}

// BeforeCreate assigns a fresh identifier
func (p *Partnership) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
