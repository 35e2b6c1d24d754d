package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qlndemo/coffeerun/backend/internal/catalog"
)

const migrationSeedCatalog = "2026-08-10_seed_default_catalog"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedCatalog, apply: seedDefaultCatalog},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// seedDefaultCatalog inserts the stock menu on a fresh database. Existing
// rows mean the deployment curated its own catalog; leave it alone.
func seedDefaultCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&catalog.DrinkType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		drinkNames := []string{
			"Flat White", "Long Black", "Cappuccino", "Latte", "Mocha",
			"Espresso", "Macchiato", "Hot Chocolate", "Chai Latte", "Piccolo",
		}
		for index, name := range drinkNames {
			item := catalog.DrinkType{
				ID:           uuid.NewString(),
				Name:         name,
				DisplayOrder: index + 1,
				IsActive:     true,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		sizes := []struct {
			name         string
			abbreviation string
		}{
			{"Small", "Sm"},
			{"Regular", "Reg"},
			{"Large", "Lrg"},
		}
		for index, size := range sizes {
			item := catalog.Size{
				ID:           uuid.NewString(),
				Name:         size.name,
				Abbreviation: size.abbreviation,
				DisplayOrder: index + 1,
				IsActive:     true,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		milkNames := []string{"Full Cream", "Skim", "Soy", "Oat", "Almond"}
		for index, name := range milkNames {
			item := catalog.MilkOption{
				ID:           uuid.NewString(),
				Name:         name,
				DisplayOrder: index + 1,
				IsActive:     true,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
