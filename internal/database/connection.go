// internal/database/connection.go
package database

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/config"
	"github.com/kumawatjayant/shree-anna-connect-sub000/internal/models"
)

// Transactions take the sqlite write lock at BEGIN and wait up to five seconds
// for it. WAL keeps plain reads from blocking writers.
const sqliteOptions = "_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

// Dialector picks the gorm driver for the configured database. Postgres goes
// through lib/pq so unique violations surface as *pq.Error.
func Dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "sqlite" {
		return sqlite.Open(sqliteDSN(cfg.DSN()))
	}
	return postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        cfg.DSN(),
	})
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqliteOptions
}

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(Dialector(cfg), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", cfg.Driver).Info("Database connection established")
	return db, nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Crop{},
		&models.Product{},
		&models.Order{},
		&models.BulkRequest{},
		&models.Traceability{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_created ON orders(buyer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_seller_created ON orders(seller_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_bulk_requests_status_crop ON bulk_requests(status, crop_type)",
		"CREATE INDEX IF NOT EXISTS idx_bulk_requests_created ON bulk_requests(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_crops_farmer_status ON crops(farmer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_traceabilities_farmer ON traceabilities(farmer_id, created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}

	return nil
}

// SeedInitialData installs a development admin and a small catalog so the
// workflow endpoints can be exercised locally.
func SeedInitialData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin := &models.User{Name: "Platform Admin", Role: models.RoleAdmin, VerificationStatus: models.VerificationStatusVerified}
	farmer := &models.User{
		Name:               "Lakshmi Devi",
		Role:               models.RoleFarmer,
		VerificationStatus: models.VerificationStatusVerified,
		Location:           models.Location{Village: "Kolar", District: "Kolar", State: "Karnataka"},
	}
	processor := &models.User{Name: "Deccan Millet Foods", Role: models.RoleProcessor, VerificationStatus: models.VerificationStatusVerified}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, u := range []*models.User{admin, farmer, processor} {
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Name, err)
			}
		}

		crop := &models.Crop{
			FarmerID:      farmer.ID,
			CropType:      "ragi",
			Variety:       "GPU-28",
			Quantity:      decimal.NewFromInt(500),
			Unit:          "kg",
			ExpectedPrice: decimal.NewFromInt(38),
			Location:      farmer.Location,
			Status:        models.CropStatusAvailable,
		}
		if err := tx.Create(crop).Error; err != nil {
			return fmt.Errorf("failed to seed crop: %w", err)
		}

		logrus.Info("Initial data seeded")
		return nil
	})
}
