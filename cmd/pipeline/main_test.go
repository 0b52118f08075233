package main

import (
	"path/filepath"
	"testing"

	"miim/internal/database"
	"miim/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunClosesDatabaseOnFailure(t *testing.T) {
	t.Setenv("MIIM_CONFIG", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "pipeline.db"))
	t.Setenv("OPENAI_API_KEY", "")

	code := run(services.RunOptions{Reprocess: true, Limit: 1})
	assert.Equal(t, 1, code, "extraction without an API key fails")

	require.NotNil(t, database.DB)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "connection is closed before the exit code is returned")
}
