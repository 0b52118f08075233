package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"miim/internal/extraction"
	"miim/internal/models"
	"miim/internal/normalize"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QualityConfig holds the quality sweep settings
type QualityConfig struct {
	Commit        bool `yaml:"commit"`
	MaxDistance   int  `yaml:"max_distance"`
	MaxLengthDiff int  `yaml:"max_length_diff"`
	MinNameLength int  `yaml:"min_name_length"`
}

// DefaultQualityConfig returns a dry-run sweep with edit distance 2
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		Commit:        false,
		MaxDistance:   2,
		MaxLengthDiff: 2,
		MinNameLength: 3,
	}
}

// DuplicatePair is two companies whose normalized names are within edit distance
type DuplicatePair struct {
	First    models.Company
	Second   models.Company
	Distance int
}

// QualitySummary is the outcome of a full sweep
type QualitySummary struct {
	RunID           uuid.UUID      `json:"run_id"`
	Mode            string         `json:"mode"`
	DuplicatesFound int            `json:"duplicates_found"`
	MergesApplied   int            `json:"merges_applied"`
	NullsFilled     int            `json:"nulls_filled"`
	NamesNormalized int            `json:"names_normalized"`
	Report          *QualityReport `json:"report"`
}

// QualityService is the offline sweep over the whole company table. In dry-run mode
// every action is logged but nothing in companies changes.
type QualityService struct {
	db     *gorm.DB
	config QualityConfig
	runID  uuid.UUID
}

// NewQualityService creates a sweep with a fresh run id
func NewQualityService(db *gorm.DB, config QualityConfig) *QualityService {
	defaults := DefaultQualityConfig()
	if config.MaxDistance <= 0 {
		config.MaxDistance = defaults.MaxDistance
	}
	if config.MaxLengthDiff <= 0 {
		config.MaxLengthDiff = defaults.MaxLengthDiff
	}
	if config.MinNameLength <= 0 {
		config.MinNameLength = defaults.MinNameLength
	}
	return &QualityService{db: db, config: config, runID: uuid.New()}
}

// RunID identifies the log rows of this sweep
func (qs *QualityService) RunID() uuid.UUID {
	return qs.runID
}

func (qs *QualityService) mode() string {
	if qs.config.Commit {
		return "commit"
	}
	return "dry-run"
}

// Run executes duplicate merge, null fill, normalization and the report in that order
func (qs *QualityService) Run(ctx context.Context) (*QualitySummary, error) {
	log.Printf("🧹 Starting quality sweep %s (mode=%s)", qs.runID, qs.mode())
	summary := &QualitySummary{RunID: qs.runID, Mode: qs.mode()}

	pairs, err := qs.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	summary.DuplicatesFound = len(pairs)

	if summary.MergesApplied, err = qs.MergeDuplicates(ctx, pairs); err != nil {
		return nil, err
	}
	if summary.NullsFilled, err = qs.FillNulls(ctx); err != nil {
		return nil, err
	}
	if summary.NamesNormalized, err = qs.NormalizeNames(ctx); err != nil {
		return nil, err
	}
	if summary.Report, err = qs.GenerateReport(ctx); err != nil {
		return nil, err
	}
	summary.Report.DuplicatesFound = summary.DuplicatesFound
	qs.logAction(ctx, models.QualityActionInfo, nil, summary.Report)

	log.Printf("✅ Quality sweep complete: duplicates=%d merges=%d nulls_filled=%d names_normalized=%d",
		summary.DuplicatesFound, summary.MergesApplied, summary.NullsFilled, summary.NamesNormalized)
	return summary, nil
}

func (qs *QualityService) loadCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := qs.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	return companies, nil
}

// FindDuplicates compares every pair of companies whose normalized names differ
// in length by at most MaxLengthDiff, flagging distance <= MaxDistance and
// distance < max(len1, len2).
func (qs *QualityService) FindDuplicates(ctx context.Context) ([]DuplicatePair, error) {
	companies, err := qs.loadCompanies(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(companies))
	lengths := make([]int, len(companies))
	for i, c := range companies {
		keys[i] = normalize.CompanyName(c.CompanyName)
		lengths[i] = normalize.RuneLen(keys[i])
	}

	// O(n^2); a blocking key on the normalized prefix would cut this if the table grows
	var pairs []DuplicatePair
	for i := range companies {
		if lengths[i] < qs.config.MinNameLength {
			continue
		}
		for j := i + 1; j < len(companies); j++ {
			if lengths[j] < qs.config.MinNameLength {
				continue
			}
			if abs(lengths[i]-lengths[j]) > qs.config.MaxLengthDiff {
				continue
			}

			dist := normalize.Levenshtein(keys[i], keys[j])
			if dist <= qs.config.MaxDistance && dist < max(lengths[i], lengths[j]) {
				pairs = append(pairs, DuplicatePair{First: companies[i], Second: companies[j], Distance: dist})
				log.Printf("🔍 Duplicate found: %q <-> %q (dist=%d)", companies[i].CompanyName, companies[j].CompanyName, dist)
			}
		}
	}
	return pairs, nil
}

// chooseKeeper prefers higher confidence, then more populated fields, then scan order
func chooseKeeper(a, b *models.Company) (keeper, loser *models.Company) {
	if a.DataConfidence != b.DataConfidence {
		if a.DataConfidence > b.DataConfidence {
			return a, b
		}
		return b, a
	}
	if b.FilledFieldCount() > a.FilledFieldCount() {
		return b, a
	}
	return a, b
}

// MergeDuplicates fills the keeper of each pair from the loser. The loser is never
// deleted. The keeper is updated in memory so later pairs see earlier fills; a fill
// whose write fails is discarded so a later pair can propose it again.
// Returns the number of pairs that produced a non-empty update.
func (qs *QualityService) MergeDuplicates(ctx context.Context, pairs []DuplicatePair) (int, error) {
	byID := make(map[uuid.UUID]*models.Company)
	track := func(c models.Company) *models.Company {
		if existing, ok := byID[c.ID]; ok {
			return existing
		}
		copied := c
		byID[c.ID] = &copied
		return &copied
	}

	merged := 0
	for _, pair := range pairs {
		keeper, loser := chooseKeeper(track(pair.First), track(pair.Second))
		filled := *keeper
		cols := fillEmptyFields(&filled, loser)

		logID := qs.logAction(ctx, models.QualityActionMerge, &keeper.ID, map[string]interface{}{
			"keeper_id":      keeper.ID,
			"keeper_name":    keeper.CompanyName,
			"duplicate_id":   loser.ID,
			"duplicate_name": loser.CompanyName,
			"distance":       pair.Distance,
			"fields_filled":  cols,
		})
		if len(cols) == 0 {
			continue
		}

		if qs.config.Commit {
			if err := qs.db.WithContext(ctx).Model(&filled).Select(cols).Updates(&filled).Error; err != nil {
				log.Printf("❌ Failed to merge into %s: %v", keeper.ID, err)
				qs.markNotApplied(ctx, logID)
				continue
			}
			log.Printf("🔗 Merged: kept %q, filled %v", keeper.CompanyName, cols)
		} else {
			log.Printf("[DRY-RUN] Would merge: keep %q, fill %v", keeper.CompanyName, cols)
		}
		*keeper = filled
		merged++
	}
	return merged, nil
}

// FillNulls backfills missing sector and city from extraction history entities
// with the same name, newest extraction first
func (qs *QualityService) FillNulls(ctx context.Context) (int, error) {
	var companies []models.Company
	err := qs.db.WithContext(ctx).
		Where("sector IS NULL OR sector = '' OR headquarters_city IS NULL OR headquarters_city = ''").
		Order("created_at ASC, id ASC").
		Find(&companies).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load incomplete companies: %w", err)
	}
	if len(companies) == 0 {
		return 0, nil
	}

	sectors, cities, err := qs.historyIndex(ctx)
	if err != nil {
		return 0, err
	}

	filled := 0
	for i := range companies {
		company := &companies[i]
		key := strings.ToLower(normalize.CollapseWhitespace(company.CompanyName))

		updates := map[string]interface{}{}
		if company.Sector == "" {
			if sector, ok := sectors[key]; ok {
				updates["sector"] = canonicalSector(ctx, qs.db, sector)
			}
		}
		if company.HeadquartersCity == "" {
			if city, ok := cities[key]; ok {
				updates["headquarters_city"] = normalize.City(city)
			}
		}
		if len(updates) == 0 {
			continue
		}

		logID := qs.logAction(ctx, models.QualityActionNullFill, &company.ID, map[string]interface{}{
			"company_id":    company.ID,
			"company_name":  company.CompanyName,
			"fields_filled": updates,
		})

		if qs.config.Commit {
			// the WHERE keeps a concurrent fill from being overwritten
			res := qs.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", company.ID)
			for col := range updates {
				res = res.Where(fmt.Sprintf("(%s IS NULL OR %s = '')", col, col))
			}
			if err := res.Updates(updates).Error; err != nil {
				log.Printf("❌ Failed to fill nulls for %s: %v", company.ID, err)
				qs.markNotApplied(ctx, logID)
				continue
			}
			log.Printf("🩹 Filled nulls for %q: %v", company.CompanyName, updates)
		} else {
			log.Printf("[DRY-RUN] Would fill nulls for %q: %v", company.CompanyName, updates)
		}
		filled++
	}
	return filled, nil
}

// historyIndex maps lowercased entity names to the newest sector and city seen for them
func (qs *QualityService) historyIndex(ctx context.Context) (map[string]string, map[string]string, error) {
	var results []models.ExtractionResult
	err := qs.db.WithContext(ctx).
		Select("id", "extraction_data", "created_at").
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load extraction history: %w", err)
	}

	sectors := make(map[string]string)
	cities := make(map[string]string)
	for _, r := range results {
		var payload extraction.Result
		if err := json.Unmarshal(r.ExtractionData, &payload); err != nil {
			continue
		}
		for _, e := range payload.Entities {
			key := strings.ToLower(normalize.CollapseWhitespace(e.CompanyName))
			if key == "" {
				continue
			}
			if _, seen := sectors[key]; !seen && e.Sector != "" {
				sectors[key] = e.Sector
			}
			if _, seen := cities[key]; !seen && e.City != "" {
				cities[key] = e.City
			}
		}
	}
	return sectors, cities, nil
}

// NormalizeNames canonicalizes city spellings and collapses whitespace in company names
func (qs *QualityService) NormalizeNames(ctx context.Context) (int, error) {
	companies, err := qs.loadCompanies(ctx)
	if err != nil {
		return 0, err
	}

	normalized := 0
	for i := range companies {
		company := &companies[i]
		changes := map[string]interface{}{}

		if company.HeadquartersCity != "" {
			if city := normalize.City(company.HeadquartersCity); city != company.HeadquartersCity {
				changes["headquarters_city"] = city
			}
		}
		if name := normalize.CollapseWhitespace(company.CompanyName); name != "" && name != company.CompanyName {
			changes["company_name"] = name
		}
		if len(changes) == 0 {
			continue
		}

		logID := qs.logAction(ctx, models.QualityActionNameNormalize, &company.ID, map[string]interface{}{
			"company_id":   company.ID,
			"company_name": company.CompanyName,
			"changes":      changes,
		})

		if qs.config.Commit {
			update := make(map[string]interface{}, len(changes)+1)
			for k, v := range changes {
				update[k] = v
			}
			if name, ok := changes["company_name"].(string); ok {
				update["name_key"] = normalize.CompanyName(name)
			}
			if err := qs.db.WithContext(ctx).Model(&models.Company{}).Where("id = ?", company.ID).Updates(update).Error; err != nil {
				log.Printf("❌ Failed to normalize %s: %v", company.ID, err)
				qs.markNotApplied(ctx, logID)
				continue
			}
			log.Printf("🔤 Normalized %q: %v", company.CompanyName, changes)
		} else {
			log.Printf("[DRY-RUN] Would normalize %q: %v", company.CompanyName, changes)
		}
		normalized++
	}
	return normalized, nil
}

// logAction writes the proposed action before it is applied; applied mirrors the sweep mode
func (qs *QualityService) logAction(ctx context.Context, actionType string, entityID *uuid.UUID, details interface{}) *uuid.UUID {
	payload, err := json.Marshal(details)
	if err != nil {
		log.Printf("⚠️  Failed to encode %s details: %v", actionType, err)
		payload = []byte("{}")
	}

	entry := models.DataQualityLog{
		RunID:      qs.runID,
		ActionType: actionType,
		EntityType: "company",
		EntityID:   entityID,
		Details:    datatypes.JSON(payload),
		Applied:    qs.config.Commit,
	}
	if err := qs.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("⚠️  Failed to log quality action %s: %v", actionType, err)
		return nil
	}
	return &entry.ID
}

func (qs *QualityService) markNotApplied(ctx context.Context, logID *uuid.UUID) {
	if logID == nil {
		return
	}
	if err := qs.db.WithContext(ctx).Model(&models.DataQualityLog{}).Where("id = ?", *logID).Update("applied", false).Error; err != nil {
		log.Printf("⚠️  Failed to flag quality log %s as not applied: %v", *logID, err)
	}
}

// Actions returns the log rows of this sweep in insertion order
func (qs *QualityService) Actions(ctx context.Context) ([]models.DataQualityLog, error) {
	var entries []models.DataQualityLog
	err := qs.db.WithContext(ctx).Where("run_id = ?", qs.runID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
