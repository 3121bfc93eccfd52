// Package testutil holds fixtures shared by the service and HTTP test suites.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/config"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/database"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// NewDB opens an isolated in-memory sqlite database with the full schema.
// A single connection serialises transactions the way row locks do on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewFileDB opens a file-backed sqlite database through database.Initialize with
// a pool of maxOpen connections, the way a development server runs.
func NewFileDB(t testing.TB, maxOpen int) *gorm.DB {
	t.Helper()

	db, err := database.Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "marketplace.db"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxOpen,
		MaxLifetime:  60,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { database.Close(db) })
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()

	u := &models.User{
		Name:               name,
		Role:               role,
		VerificationStatus: models.VerificationStatusVerified,
		Location:           models.Location{District: "Anantapur", State: "Andhra Pradesh"},
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateCrop(t testing.TB, db *gorm.DB, farmerID uuid.UUID, cropType string, quantity, price int64) *models.Crop {
	t.Helper()

	c := &models.Crop{
		FarmerID:      farmerID,
		CropType:      cropType,
		Quantity:      decimal.NewFromInt(quantity),
		Unit:          "kg",
		ExpectedPrice: decimal.NewFromInt(price),
		Status:        models.CropStatusAvailable,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateProduct(t testing.TB, db *gorm.DB, sellerID uuid.UUID, name string, stock int64, price decimal.Decimal) *models.Product {
	t.Helper()

	p := &models.Product{
		SellerID: sellerID,
		Name:     name,
		Price:    price,
		Stock:    decimal.NewFromInt(stock),
		Unit:     "pack",
		Status:   models.ProductStatusActive,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
