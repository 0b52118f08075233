package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"miim/internal/database"
	"miim/internal/extraction"
	"miim/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// MockExtractor is a mock implementation of the LLM extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, text string) (*extraction.Result, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.Result), args.Error(1)
}

var _ extraction.Extractor = (*MockExtractor)(nil)

var articleSeq int

func createTestArticle(t *testing.T, db *gorm.DB, text string) *models.Article {
	articleSeq++
	article := &models.Article{
		SourceName:  "test-source",
		SourceURL:   fmt.Sprintf("https://news.example.ma/article-%d-%s", articleSeq, uuid.NewString()[:8]),
		Title:       fmt.Sprintf("Article %d", articleSeq),
		ScrapedDate: time.Now().UTC().Add(time.Duration(articleSeq) * time.Second),
		ArticleText: text,
	}
	require.NoError(t, db.Create(article).Error)
	return article
}

func createTestCompany(t *testing.T, db *gorm.DB, company models.Company) *models.Company {
	require.NoError(t, db.Create(&company).Error)
	return &company
}

func newTestRouter(t *testing.T, db *gorm.DB) *ConfidenceRouter {
	writer := NewGraphWriter(db, NewCompanyMatcher(db))
	router, err := NewConfidenceRouter(db, writer, NewArticlesService(db), DefaultThresholds())
	require.NoError(t, err)
	return router
}

func floatPtr(v float64) *float64 { return &v }

func int64Ptr(v int64) *int64 { return &v }

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func reloadArticle(t *testing.T, db *gorm.DB, id uuid.UUID) models.Article {
	var article models.Article
	require.NoError(t, db.First(&article, "id = ?", id).Error)
	return article
}
