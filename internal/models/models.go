// Package models contains all data models for the company graph pipeline
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&Article{},
		&Company{},
		&CompanyPerson{},
		&CompanyArticle{},
		&Sector{},
		&Event{},
		&Relationship{},
		&Partnership{},
		&ExtractionResult{},
		&PipelineCost{},
		&ReviewQueueItem{},
		&DataQualityLog{},
		&ScraperRun{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// SeedSectors inserts any missing canonical sectors
func SeedSectors(db *gorm.DB) error {
	for _, name := range MoroccanSectors {
		sector := Sector{SectorName: name}
		if err := db.Where(Sector{SectorName: name}).FirstOrCreate(&sector).Error; err != nil {
			return err
		}
	}
	return nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
