package services

import (
	"context"
	"fmt"
	"strings"

	"miim/internal/models"
	"miim/internal/normalize"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyFinder resolves a company name to a stored company
type CompanyFinder interface {
	Find(ctx context.Context, name, city string) (*uuid.UUID, error)
}

// CompanyMatcher is the permissive live-ingestion matcher. It matches on a
// substring of the stored normalized name key, so "Atlas" will resolve
// to "Atlas Cement" when no exact "Atlas" exists; the quality sweep is the
// stricter backstop.
type CompanyMatcher struct {
	db *gorm.DB
}

var _ CompanyFinder = (*CompanyMatcher)(nil)

// NewCompanyMatcher creates a new company matcher
func NewCompanyMatcher(db *gorm.DB) *CompanyMatcher {
	return &CompanyMatcher{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Find returns the best stored match for name, preferring companies in city
// when one is given, or nil when nothing contains the normalized name.
func (m *CompanyMatcher) Find(ctx context.Context, name, city string) (*uuid.UUID, error) {
	key := normalize.CompanyName(name)
	if key == "" {
		return nil, nil
	}

	var candidates []models.Company
	err := m.db.WithContext(ctx).
		Select("id", "company_name", "headquarters_city").
		Where(`name_key LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(key)+"%").
		Order("created_at ASC, id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("company lookup for %q failed: %w", name, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := selectCandidate(candidates, name, key, normalize.City(city))
	return &best.ID, nil
}

// selectCandidate ranks exact name matches over substring hits, and
// same-city hits over others within each group.
func selectCandidate(candidates []models.Company, name, key, city string) *models.Company {
	trimmed := normalize.CollapseWhitespace(name)
	isExact := func(c *models.Company) bool {
		return strings.EqualFold(normalize.CollapseWhitespace(c.CompanyName), trimmed) ||
			normalize.CompanyName(c.CompanyName) == key
	}
	inCity := func(c *models.Company) bool {
		return city != "" && normalize.City(c.HeadquartersCity) == city
	}

	var exact, exactInCity, firstInCity *models.Company
	for i := range candidates {
		c := &candidates[i]
		switch {
		case isExact(c) && inCity(c):
			if exactInCity == nil {
				exactInCity = c
			}
		case isExact(c):
			if exact == nil {
				exact = c
			}
		case inCity(c):
			if firstInCity == nil {
				firstInCity = c
			}
		}
	}

	for _, pick := range []*models.Company{exactInCity, exact, firstInCity} {
		if pick != nil {
			return pick
		}
	}
	return &candidates[0]
}
