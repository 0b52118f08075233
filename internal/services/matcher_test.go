package services

import (
	"context"
	"testing"

	"miim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyMatcher_Find(t *testing.T) {
	db := setupTestDB(t)
	matcher := NewCompanyMatcher(db)
	ctx := context.Background()

	yazaki := createTestCompany(t, db, models.Company{CompanyName: "Yazaki Morocco SA", HeadquartersCity: "Tanger"})
	atlasCasa := createTestCompany(t, db, models.Company{CompanyName: "Atlas Cement", HeadquartersCity: "Casablanca"})
	atlasRabat := createTestCompany(t, db, models.Company{CompanyName: "Atlas", HeadquartersCity: "Rabat"})
	createTestCompany(t, db, models.Company{CompanyName: "100%_Bio"})

	t.Run("legal suffix and case are ignored", func(t *testing.T) {
		id, err := matcher.Find(ctx, "YAZAKI MOROCCO", "")
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, yazaki.ID, *id)
	})

	t.Run("exact name wins over substring hit", func(t *testing.T) {
		id, err := matcher.Find(ctx, "Atlas", "")
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, atlasRabat.ID, *id)
	})

	t.Run("substring match resolves a longer stored name", func(t *testing.T) {
		id, err := matcher.Find(ctx, "Atlas Cem", "")
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, atlasCasa.ID, *id)
	})

	t.Run("city breaks ties between substring hits", func(t *testing.T) {
		id, err := matcher.Find(ctx, "tlas", "casa")
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, atlasCasa.ID, *id)
	})

	t.Run("wildcards in the name are literal", func(t *testing.T) {
		id, err := matcher.Find(ctx, "0%_B", "")
		require.NoError(t, err)
		assert.NotNil(t, id)

		id, err = matcher.Find(ctx, "Y%", "")
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("unknown or empty name", func(t *testing.T) {
		id, err := matcher.Find(ctx, "Renault Group", "")
		require.NoError(t, err)
		assert.Nil(t, id)

		id, err = matcher.Find(ctx, "   ", "")
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("accented capitals fold like the lookup key", func(t *testing.T) {
		energie := createTestCompany(t, db, models.Company{CompanyName: "ÉNERGIE MAROC SA"})
		assert.Equal(t, "énergie maroc", energie.NameKey)

		id, err := matcher.Find(ctx, "Énergie Maroc", "")
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, energie.ID, *id)
	})
}

func TestMigrateBackfillsNameKeys(t *testing.T) {
	db := setupTestDB(t)
	company := createTestCompany(t, db, models.Company{CompanyName: "SOCIÉTÉ GÉNÉRALE MAROC"})
	require.NoError(t, db.Model(&models.Company{}).Where("id = ?", company.ID).Update("name_key", "").Error)

	require.NoError(t, models.BackfillNameKeys(db))

	id, err := NewCompanyMatcher(db).Find(context.Background(), "Société Générale Maroc", "")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, company.ID, *id)
}
