package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/config"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

func TestSQLiteMigrateAndSeed(t *testing.T) {
	db, err := Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "marketplace.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		MaxLifetime:  60,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, RunMigrations(db))
	// Migrations are re-runnable.
	require.NoError(t, RunMigrations(db))

	require.NoError(t, SeedInitialData(db))
	require.NoError(t, SeedInitialData(db))

	var users, crops int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Crop{}).Count(&crops).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(1), crops)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "market.db?"+sqliteOptions, sqliteDSN("market.db"))
	assert.Equal(t, "file:market.db?cache=private&"+sqliteOptions, sqliteDSN("file:market.db?cache=private"))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logLevel("warn"), logLevel("unknown"))
	assert.NotEqual(t, logLevel("info"), logLevel("silent"))
}
