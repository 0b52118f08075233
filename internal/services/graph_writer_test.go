package services

import (
	"context"
	"testing"

	"miim/internal/extraction"
	"miim/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphWriter_UpsertCompanyIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	ctx := context.Background()
	article := createTestArticle(t, db, "Renault Group investit à Tanger.")

	entity := extraction.Entity{
		CompanyName: "Renault Group",
		Sector:      "automotive",
		City:        "tangier",
		MentionType: extraction.MentionPrimarySubject,
		ManagementMentions: []extraction.ManagementMention{
			{Name: "Mohamed Bachiri", Role: "Directeur général"},
		},
	}

	first := writer.UpsertCompany(ctx, entity, article.ID, 0.9)
	require.NotNil(t, first)
	second := writer.UpsertCompany(ctx, entity, article.ID, 0.9)
	require.NotNil(t, second)

	assert.Equal(t, *first, *second)
	assert.Equal(t, int64(1), countRows(t, db, &models.Company{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.CompanyArticle{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.CompanyPerson{}))

	var company models.Company
	require.NoError(t, db.First(&company, "id = ?", *first).Error)
	assert.Equal(t, "Automotive", company.Sector, "sector mapped onto the seeded list")
	assert.Equal(t, "Tanger", company.HeadquartersCity)
	assert.InDelta(t, 0.9, company.DataConfidence, 1e-9)
}

func TestGraphWriter_UpsertAccentedUppercaseNameIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	ctx := context.Background()

	entity := extraction.Entity{
		CompanyName: "ÉNERGIE MAROC",
		ManagementMentions: []extraction.ManagementMention{
			{Name: "ÉLODIE BENANI", Role: "Présidente"},
		},
	}
	first := writer.UpsertCompany(ctx, entity, uuid.Nil, 0.8)
	require.NotNil(t, first)

	entity.ManagementMentions[0].Name = "élodie benani"
	second := writer.UpsertCompany(ctx, entity, uuid.Nil, 0.8)
	require.NotNil(t, second)

	assert.Equal(t, *first, *second)
	assert.Equal(t, int64(1), countRows(t, db, &models.Company{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.CompanyPerson{}))
}

func TestGraphWriter_PartialFillNeverOverwrites(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	ctx := context.Background()

	existing := createTestCompany(t, db, models.Company{
		CompanyName:    "Lear Corporation",
		Sector:         "Automotive",
		Description:    "Original description",
		DataConfidence: 0.7,
	})

	id := writer.UpsertCompany(ctx, extraction.Entity{
		CompanyName:   "Lear Corporation",
		Sector:        "Textile & Leather",
		Description:   "Replacement description",
		City:          "Kenitra",
		EmployeeCount: int64Ptr(3500),
		RevenueMAD:    floatPtr(1.2e9),
		OwnershipType: models.OwnershipMultinational,
	}, uuid.Nil, 0.6)
	require.NotNil(t, id)
	assert.Equal(t, existing.ID, *id)

	var company models.Company
	require.NoError(t, db.First(&company, "id = ?", existing.ID).Error)
	assert.Equal(t, "Automotive", company.Sector)
	assert.Equal(t, "Original description", company.Description)
	assert.Equal(t, "Kénitra", company.HeadquartersCity)
	require.NotNil(t, company.EmployeeCount)
	assert.Equal(t, int64(3500), *company.EmployeeCount)
	require.NotNil(t, company.RevenueMAD)
	assert.InDelta(t, 1.2e9, *company.RevenueMAD, 1)
	assert.Equal(t, models.OwnershipMultinational, company.OwnershipType)
	assert.InDelta(t, 0.7, company.DataConfidence, 1e-9, "confidence never decreases")

	writer.UpsertCompany(ctx, extraction.Entity{CompanyName: "Lear Corporation"}, uuid.Nil, 0.95)
	require.NoError(t, db.First(&company, "id = ?", existing.ID).Error)
	assert.InDelta(t, 0.95, company.DataConfidence, 1e-9)
}

func TestGraphWriter_UnknownOwnershipIsNotStored(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	ctx := context.Background()

	id := writer.UpsertCompany(ctx, extraction.Entity{CompanyName: "Sapino Industries", OwnershipType: models.OwnershipUnknown}, uuid.Nil, 0.8)
	require.NotNil(t, id)
	writer.UpsertCompany(ctx, extraction.Entity{CompanyName: "Sapino Industries", OwnershipType: models.OwnershipPrivateDomestic}, uuid.Nil, 0.8)

	var company models.Company
	require.NoError(t, db.First(&company, "id = ?", *id).Error)
	assert.Equal(t, models.OwnershipPrivateDomestic, company.OwnershipType)
}

func TestGraphWriter_UpsertWithoutNameWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))

	assert.Nil(t, writer.UpsertCompany(context.Background(), extraction.Entity{CompanyName: "  "}, uuid.Nil, 0.9))
	assert.Equal(t, int64(0), countRows(t, db, &models.Company{}))
}

func TestGraphWriter_InsertEvent(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	ctx := context.Background()
	company := createTestCompany(t, db, models.Company{CompanyName: "OCP Group"})

	id := writer.InsertEvent(ctx, extraction.Entity{
		CompanyName:         "OCP Group",
		EventType:           "Investment",
		City:                "safi",
		InvestmentAmountMAD: floatPtr(5e9),
	}, company.ID, "https://example.ma/ocp", 0.88)
	require.NotNil(t, id)

	var event models.Event
	require.NoError(t, db.First(&event, "id = ?", *id).Error)
	assert.Equal(t, models.EventInvestment, event.EventType)
	assert.Equal(t, "Safi", event.City)
	assert.Equal(t, "https://example.ma/ocp", event.SourceURL)

	id = writer.InsertEvent(ctx, extraction.Entity{CompanyName: "OCP Group", EventType: "ipo"}, company.ID, "", 0.88)
	require.NotNil(t, id)
	require.NoError(t, db.First(&event, "id = ?", *id).Error)
	assert.Equal(t, models.EventOther, event.EventType)
	assert.Equal(t, int64(2), countRows(t, db, &models.Event{}))
}

func TestGraphWriter_InsertRelationships(t *testing.T) {
	db := setupTestDB(t)
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	ctx := context.Background()

	renault := createTestCompany(t, db, models.Company{CompanyName: "Renault Group"})
	yazaki := createTestCompany(t, db, models.Company{CompanyName: "Yazaki Morocco"})
	lear := createTestCompany(t, db, models.Company{CompanyName: "Lear Corporation"})

	nameToID := map[string]uuid.UUID{"Renault Group": renault.ID}
	rels := []extraction.RelationshipCandidate{
		{SourceCompany: "renault group", TargetCompany: "Yazaki Morocco", RelationshipType: "partner"},
		{SourceCompany: "Renault Group", TargetCompany: "Lear Corporation", RelationshipType: "supplier"},
		{SourceCompany: "Renault Group", TargetCompany: "Renault Group", RelationshipType: "partner"},
		{SourceCompany: "Renault Group", TargetCompany: "Ghost Company", RelationshipType: "client"},
		{SourceCompany: "Renault Group", TargetCompany: "Lear Corporation", RelationshipType: "friend"},
	}

	inserted := writer.InsertRelationships(ctx, rels, nameToID, "https://example.ma/rel", 0.9)
	assert.Equal(t, 2, inserted)

	again := writer.InsertRelationships(ctx, rels, nameToID, "https://example.ma/rel", 0.9)
	assert.Equal(t, 0, again, "same (source, target, type) triple is stored once")

	assert.Equal(t, int64(2), countRows(t, db, &models.Relationship{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.Partnership{}), "partner edges are mirrored once")

	var selfLoops int64
	require.NoError(t, db.Model(&models.Relationship{}).Where("source_company_id = target_company_id").Count(&selfLoops).Error)
	assert.Zero(t, selfLoops)

	var edge models.Relationship
	require.NoError(t, db.First(&edge, "target_company_id = ?", yazaki.ID).Error)
	assert.Equal(t, renault.ID, edge.SourceCompanyID)
	assert.Equal(t, models.RelationshipPartner, edge.RelationshipType)
	require.NoError(t, db.First(&edge, "target_company_id = ?", lear.ID).Error)
	assert.Equal(t, models.RelationshipSupplier, edge.RelationshipType)
}
