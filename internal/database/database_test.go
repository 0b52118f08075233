package database

import (
	"testing"

	"miim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: "5432", User: "miim", DBName: "graph", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=miim dbname=graph sslmode=disable", cfg.DSN())

	cfg.Password = "secret"
	assert.Contains(t, cfg.DSN(), "password=secret")
	assert.NotContains(t, cfg.String(), "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_NAME", "")

	cfg := LoadConfig()
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "miim", cfg.DBName)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenMemorySeedsSectors(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Sector{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.MoroccanSectors)), count)

	// Seeding twice does not duplicate rows
	require.NoError(t, MigrateDB(db))
	require.NoError(t, db.Model(&models.Sector{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.MoroccanSectors)), count)
}
