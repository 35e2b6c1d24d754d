package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qlndemo/coffeerun/backend/internal/catalog"
	"github.com/qlndemo/coffeerun/backend/internal/orders"
	"github.com/qlndemo/coffeerun/backend/internal/roster"
	"github.com/qlndemo/coffeerun/backend/internal/users"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serializes writers and
	// keeps the single-default and order-creation transactions race free.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&catalog.DrinkType{},
		&catalog.Size{},
		&catalog.MilkOption{},
		&roster.Colleague{},
		&roster.CoffeeOption{},
		&users.User{},
		&users.MagicLinkToken{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.ConsolidatedLine{},
		&migrationRecord{},
	)
}
