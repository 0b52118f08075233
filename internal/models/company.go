package models

import (
	"time"

	"miim/internal/normalize"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ownership types accepted for a company
const (
	OwnershipPrivateDomestic = "private_domestic"
	OwnershipPrivateForeign  = "private_foreign"
	OwnershipStateOwned      = "state_owned"
	OwnershipJointVenture    = "joint_venture"
	OwnershipMultinational   = "multinational"
	OwnershipPublicListed    = "public_listed"
	OwnershipUnknown         = "unknown"
)

// Company is a business entity in the shared company graph.
// Text fields use "" for absent and numeric fields use nil.
type Company struct {
	ID                 uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CompanyName        string    `json:"company_name" db:"company_name" gorm:"column:company_name;index;not null"`
	NameKey            string    `json:"-" db:"name_key" gorm:"column:name_key;index"`
	Sector             string    `json:"sector" db:"sector" gorm:"column:sector;index"`
	SubSector          string    `json:"sub_sector" db:"sub_sector" gorm:"column:sub_sector"`
	ValueChainPosition string    `json:"value_chain_position" db:"value_chain_position" gorm:"column:value_chain_position"`
	HeadquartersCity   string    `json:"headquarters_city" db:"headquarters_city" gorm:"column:headquarters_city;index"`
	OwnershipType      string    `json:"ownership_type" db:"ownership_type" gorm:"column:ownership_type"`
	Description        string    `json:"description" db:"description" gorm:"column:description;type:text"`
	Activities         []string  `json:"activities" db:"activities" gorm:"column:activities;type:text;serializer:json"`
	WebsiteURL         string    `json:"website_url" db:"website_url" gorm:"column:website_url"`

	// Amounts are in MAD
	EmployeeCount       *int64   `json:"employee_count" db:"employee_count" gorm:"column:employee_count"`
	RevenueMAD          *float64 `json:"revenue_mad" db:"revenue_mad" gorm:"column:revenue_mad"`
	InvestmentAmountMAD *float64 `json:"investment_amount_mad" db:"investment_amount_mad" gorm:"column:investment_amount_mad"`
	CapitalMAD          *float64 `json:"capital_mad" db:"capital_mad" gorm:"column:capital_mad"`

	// Soft reference by name, reconciled by the quality sweep
	ParentCompany  string  `json:"parent_company" db:"parent_company" gorm:"column:parent_company"`
	DataConfidence float64 `json:"data_confidence" db:"data_confidence" gorm:"column:data_confidence;default:0.0"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Company model
func (Company) TableName() string {
	return "companies"
}

// BeforeCreate assigns a fresh identifier and the lookup key. NameKey is folded
// in Go so lookups do not depend on the database collation.
func (c *Company) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	c.NameKey = normalize.CompanyName(c.CompanyName)
	return nil
}

// BackfillNameKeys sets the lookup key on companies stored without one
func BackfillNameKeys(db *gorm.DB) error {
	var companies []Company
	if err := db.Select("id", "company_name").Where("name_key IS NULL OR name_key = ''").Find(&companies).Error; err != nil {
		return err
	}
	for _, c := range companies {
		if err := db.Model(&Company{}).Where("id = ?", c.ID).Update("name_key", normalize.CompanyName(c.CompanyName)).Error; err != nil {
			return err
		}
	}
	return nil
}

// FilledFieldCount counts populated optional fields, used to break merge ties
func (c *Company) FilledFieldCount() int {
	count := 0
	for _, v := range []string{c.Sector, c.SubSector, c.ValueChainPosition, c.HeadquartersCity,
		c.OwnershipType, c.Description, c.WebsiteURL, c.ParentCompany} {
		if v != "" {
			count++
		}
	}
	if len(c.Activities) > 0 {
		count++
	}
	if c.EmployeeCount != nil {
		count++
	}
	for _, v := range []*float64{c.RevenueMAD, c.InvestmentAmountMAD, c.CapitalMAD} {
		if v != nil {
			count++
		}
	}
	return count
}

// CompanyPerson is a management mention attached to a company
type CompanyPerson struct {
	ID              uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CompanyID       uuid.UUID  `json:"company_id" db:"company_id" gorm:"type:uuid;not null;uniqueIndex:idx_company_person"`
	PersonName      string     `json:"person_name" db:"person_name" gorm:"not null;uniqueIndex:idx_company_person"`
	Role            string     `json:"role" db:"role"`
	SourceArticleID *uuid.UUID `json:"source_article_id" db:"source_article_id" gorm:"type:uuid"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the CompanyPerson model
func (CompanyPerson) TableName() string {
	return "company_people"
}

// BeforeCreate assigns a fresh identifier
func (p *CompanyPerson) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// CompanyArticle links a company to an article that mentions it
type CompanyArticle struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CompanyID   uuid.UUID `json:"company_id" db:"company_id" gorm:"type:uuid;not null;uniqueIndex:idx_company_article"`
	ArticleID   uuid.UUID `json:"article_id" db:"article_id" gorm:"type:uuid;not null;uniqueIndex:idx_company_article"`
	MentionType string    `json:"mention_type" db:"mention_type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the CompanyArticle model
func (CompanyArticle) TableName() string {
	return "company_articles"
}

// BeforeCreate assigns a fresh identifier
func (ca *CompanyArticle) BeforeCreate(tx *gorm.DB) error {
	assignID(&ca.ID)
	return nil
}

// Sector is a canonical industry sector name
type Sector struct {
	ID         uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	SectorName string    `json:"sector_name" db:"sector_name" gorm:"uniqueIndex;not null"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Sector model
func (Sector) TableName() string {
	return "sectors"
}

// BeforeCreate assigns a fresh identifier
func (s *Sector) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// MoroccanSectors seeds the sectors table
var MoroccanSectors = []string{
	"Automotive",
	"Aerospace & Defense",
	"Textile & Apparel",
	"Electronics",
	"Chemicals & Pharmaceuticals",
	"Food & Beverage",
	"Energy",
	"Mining",
	"Construction & BTP",
	"Agriculture",
	"ICT & Software",
	"Tourism & Hospitality",
	"Real Estate",
}
