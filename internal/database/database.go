package database

import (
	"context"
	"fmt"

	"market-dashboard/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite serialises writers; one connection also keeps :memory: databases shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the market record table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.MarketRecord{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Repository stores market records in the database.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository over an open connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceAll deletes every stored record and inserts records in one
// transaction. Seq is reassigned from the slice order.
func (r *Repository) ReplaceAll(ctx context.Context, records []models.MarketRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.MarketRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear market records: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		rows := make([]models.MarketRecord, len(records))
		for i, rec := range records {
			rec.ID = 0
			rec.Seq = i
			rows[i] = rec
		}
		if err := tx.CreateInBatches(&rows, 500).Error; err != nil {
			return fmt.Errorf("failed to insert market records: %w", err)
		}
		return nil
	})
}

// Load returns every stored record in source file order.
func (r *Repository) Load(ctx context.Context) ([]models.MarketRecord, error) {
	var records []models.MarketRecord
	if err := r.db.WithContext(ctx).Order("seq asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load market records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.MarketRecord{}).Count(&n).Error
	return n, err
}
