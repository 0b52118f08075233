package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"miim/internal/extraction"
	"miim/internal/models"
	"miim/internal/normalize"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GraphWriter merges extracted entities into the company graph. Every operation
// traps and logs its own store errors so one bad entity never blocks its siblings.
type GraphWriter struct {
	db      *gorm.DB
	matcher CompanyFinder
}

// NewGraphWriter creates a new graph writer
func NewGraphWriter(db *gorm.DB, matcher CompanyFinder) *GraphWriter {
	return &GraphWriter{db: db, matcher: matcher}
}

// UpsertCompany resolves the entity to a stored company and enriches it, or inserts
// a new one. Existing populated fields are never overwritten; data_confidence only rises.
// Returns nil when the entity has no name or the write failed.
func (w *GraphWriter) UpsertCompany(ctx context.Context, entity extraction.Entity, articleID uuid.UUID, confidence float64) *uuid.UUID {
	incoming := w.companyFromEntity(ctx, entity)
	if incoming.CompanyName == "" {
		return nil
	}
	incoming.DataConfidence = clamp01(confidence)

	matchID, err := w.matcher.Find(ctx, incoming.CompanyName, incoming.HeadquartersCity)
	if err != nil {
		log.Printf("⚠️  Matcher failed for %q: %v", incoming.CompanyName, err)
		return nil
	}

	var companyID uuid.UUID
	if matchID != nil {
		if err := w.enrichCompany(ctx, *matchID, incoming); err != nil {
			log.Printf("⚠️  Failed to update company %q (%s): %v", incoming.CompanyName, *matchID, err)
			return nil
		}
		companyID = *matchID
	} else {
		if err := w.db.WithContext(ctx).Create(incoming).Error; err != nil {
			log.Printf("⚠️  Failed to insert company %q: %v", incoming.CompanyName, err)
			return nil
		}
		log.Printf("➕ Inserted new company: %s (%s)", incoming.CompanyName, incoming.ID)
		companyID = incoming.ID
	}

	if articleID != uuid.Nil {
		w.linkArticle(ctx, companyID, articleID, entity.MentionType)
	}
	w.insertPeople(ctx, companyID, articleID, entity.ManagementMentions)

	return &companyID
}

func (w *GraphWriter) enrichCompany(ctx context.Context, id uuid.UUID, incoming *models.Company) error {
	var existing models.Company
	if err := w.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		return err
	}

	cols := fillEmptyFields(&existing, incoming)
	if incoming.DataConfidence > existing.DataConfidence {
		existing.DataConfidence = incoming.DataConfidence
		cols = append(cols, "data_confidence")
	}
	if len(cols) == 0 {
		return nil
	}

	if err := w.db.WithContext(ctx).Model(&existing).Select(cols).Updates(&existing).Error; err != nil {
		return err
	}
	log.Printf("✏️  Enriched company %s: %s", existing.CompanyName, strings.Join(cols, ", "))
	return nil
}

func (w *GraphWriter) companyFromEntity(ctx context.Context, e extraction.Entity) *models.Company {
	c := &models.Company{
		CompanyName:         normalize.CollapseWhitespace(e.CompanyName),
		Sector:              canonicalSector(ctx, w.db, e.Sector),
		SubSector:           e.SubSector,
		ValueChainPosition:  e.ValueChainPosition,
		HeadquartersCity:    normalize.City(e.City),
		Description:         e.Description,
		Activities:          e.Activities,
		WebsiteURL:          e.WebsiteURL,
		ParentCompany:       normalize.CollapseWhitespace(e.ParentCompany),
		EmployeeCount:       nonNegativeInt(e.EmployeeCount),
		RevenueMAD:          nonNegative(e.RevenueMAD),
		InvestmentAmountMAD: nonNegative(e.InvestmentAmountMAD),
		CapitalMAD:          nonNegative(e.CapitalMAD),
	}
	// "unknown" carries no information and must not block a later real value
	if e.OwnershipType != models.OwnershipUnknown {
		c.OwnershipType = e.OwnershipType
	}
	return c
}

// canonicalSector maps a free-text sector onto the seeded sector list,
// keeping the raw value when nothing matches
func canonicalSector(ctx context.Context, db *gorm.DB, sector string) string {
	sector = normalize.CollapseWhitespace(sector)
	if sector == "" {
		return ""
	}

	var sectors []models.Sector
	if err := db.WithContext(ctx).Order("sector_name").Find(&sectors).Error; err != nil {
		log.Printf("⚠️  Sector lookup failed for %q: %v", sector, err)
		return sector
	}
	lower := strings.ToLower(sector)
	for _, s := range sectors {
		if strings.EqualFold(s.SectorName, sector) {
			return s.SectorName
		}
	}
	for _, s := range sectors {
		if strings.Contains(strings.ToLower(s.SectorName), lower) {
			return s.SectorName
		}
	}
	return sector
}

func (w *GraphWriter) linkArticle(ctx context.Context, companyID, articleID uuid.UUID, mentionType string) {
	var count int64
	err := w.db.WithContext(ctx).Model(&models.CompanyArticle{}).
		Where("company_id = ? AND article_id = ?", companyID, articleID).
		Count(&count).Error
	if err != nil {
		log.Printf("⚠️  Media mention lookup failed for company %s: %v", companyID, err)
		return
	}
	if count > 0 {
		return
	}

	if mentionType == "" {
		mentionType = extraction.MentionMentioned
	}
	link := models.CompanyArticle{CompanyID: companyID, ArticleID: articleID, MentionType: mentionType}
	if err := w.db.WithContext(ctx).Create(&link).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		log.Printf("⚠️  Failed to link company %s to article %s: %v", companyID, articleID, err)
	}
}

func (w *GraphWriter) insertPeople(ctx context.Context, companyID, articleID uuid.UUID, mentions []extraction.ManagementMention) {
	for _, mention := range mentions {
		name := normalize.CollapseWhitespace(mention.Name)
		if name == "" {
			continue
		}

		known, err := w.knownPerson(ctx, companyID, name)
		if err != nil {
			log.Printf("⚠️  Person lookup failed for %q: %v", name, err)
			continue
		}
		if known {
			continue
		}

		person := models.CompanyPerson{CompanyID: companyID, PersonName: name, Role: mention.Role}
		if articleID != uuid.Nil {
			id := articleID
			person.SourceArticleID = &id
		}
		if err := w.db.WithContext(ctx).Create(&person).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("⚠️  Failed to insert person %q for company %s: %v", name, companyID, err)
		}
	}
}

// knownPerson compares names in Go so accented capitals fold on every driver
func (w *GraphWriter) knownPerson(ctx context.Context, companyID uuid.UUID, name string) (bool, error) {
	var names []string
	err := w.db.WithContext(ctx).Model(&models.CompanyPerson{}).
		Where("company_id = ?", companyID).
		Pluck("person_name", &names).Error
	if err != nil {
		return false, err
	}
	for _, existing := range names {
		if strings.EqualFold(existing, name) {
			return true, nil
		}
	}
	return false, nil
}

// InsertEvent always creates a new event row for the company
func (w *GraphWriter) InsertEvent(ctx context.Context, entity extraction.Entity, companyID uuid.UUID, sourceURL string, confidence float64) *uuid.UUID {
	event := models.Event{
		CompanyID:           companyID,
		EventType:           normalizeEventType(entity.EventType),
		Title:               normalize.CollapseWhitespace(entity.CompanyName),
		Description:         entity.Description,
		EventDate:           time.Now().UTC(),
		City:                normalize.City(entity.City),
		InvestmentAmountMAD: nonNegative(entity.InvestmentAmountMAD),
		SourceURL:           sourceURL,
		ConfidenceScore:     clamp01(confidence),
	}

	if err := w.db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Printf("⚠️  Failed to insert %s event for company %s: %v", event.EventType, companyID, err)
		return nil
	}
	return &event.ID
}

// InsertRelationships writes the edges whose endpoints resolve to two distinct
// companies and whose (source, target, type) is not stored yet. Returns the
// number of rows inserted.
func (w *GraphWriter) InsertRelationships(ctx context.Context, rels []extraction.RelationshipCandidate, nameToID map[string]uuid.UUID, sourceURL string, confidence float64) int {
	inserted := 0
	for _, rel := range rels {
		relType := strings.ToLower(strings.TrimSpace(rel.RelationshipType))
		if !isRelationshipType(relType) {
			log.Printf("Skipping relationship with unknown type %q", rel.RelationshipType)
			continue
		}

		sourceID := w.resolveEndpoint(ctx, rel.SourceCompany, nameToID)
		targetID := w.resolveEndpoint(ctx, rel.TargetCompany, nameToID)
		if sourceID == nil || targetID == nil {
			log.Printf("Skipping relationship %q -> %q: unresolved endpoint", rel.SourceCompany, rel.TargetCompany)
			continue
		}
		if *sourceID == *targetID {
			continue
		}

		var count int64
		err := w.db.WithContext(ctx).Model(&models.Relationship{}).
			Where("source_company_id = ? AND target_company_id = ? AND relationship_type = ?", *sourceID, *targetID, relType).
			Count(&count).Error
		if err != nil {
			log.Printf("⚠️  Relationship lookup failed: %v", err)
			continue
		}
		if count > 0 {
			continue
		}

		edge := models.Relationship{
			SourceCompanyID:  *sourceID,
			TargetCompanyID:  *targetID,
			RelationshipType: relType,
			Description:      rel.Description,
			SourceURL:        sourceURL,
			ConfidenceScore:  clamp01(confidence),
			Status:           "active",
		}
		if err := w.db.WithContext(ctx).Create(&edge).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				log.Printf("⚠️  Failed to insert relationship %q -> %q: %v", rel.SourceCompany, rel.TargetCompany, err)
			}
			continue
		}
		inserted++

		if relType == models.RelationshipPartner || relType == models.RelationshipJointVenture {
			w.insertLegacyPartnership(ctx, edge)
		}
	}
	return inserted
}

func (w *GraphWriter) insertLegacyPartnership(ctx context.Context, edge models.Relationship) {
	partnership := models.Partnership{
		CompanyAID:      edge.SourceCompanyID,
		CompanyBID:      edge.TargetCompanyID,
		PartnershipType: edge.RelationshipType,
		Description:     edge.Description,
		Status:          "Active",
		SourceURL:       edge.SourceURL,
		ConfidenceScore: edge.ConfidenceScore,
	}
	if err := w.db.WithContext(ctx).Create(&partnership).Error; err != nil {
		log.Printf("⚠️  Failed to insert legacy partnership for edge %s: %v", edge.ID, err)
	}
}

// resolveEndpoint looks the name up in the batch map (exact, then case-insensitive),
// falling back to the matcher
func (w *GraphWriter) resolveEndpoint(ctx context.Context, name string, nameToID map[string]uuid.UUID) *uuid.UUID {
	name = normalize.CollapseWhitespace(name)
	if name == "" {
		return nil
	}
	if id, ok := nameToID[name]; ok {
		return &id
	}
	for known, id := range nameToID {
		if strings.EqualFold(known, name) {
			id := id
			return &id
		}
	}

	id, err := w.matcher.Find(ctx, name, "")
	if err != nil {
		log.Printf("⚠️  Matcher failed for relationship endpoint %q: %v", name, err)
		return nil
	}
	return id
}

func normalizeEventType(eventType string) string {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	for _, t := range models.EventTypes {
		if t == eventType {
			return t
		}
	}
	return models.EventOther
}

func isRelationshipType(relType string) bool {
	for _, t := range models.RelationshipTypes {
		if t == relType {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	out := *v
	return &out
}

func nonNegativeInt(v *int64) *int64 {
	if v == nil || *v < 0 {
		return nil
	}
	out := *v
	return &out
}
