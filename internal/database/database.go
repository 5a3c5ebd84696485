package database

import (
	"fmt"
	"log"

	"comic-auction/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs migrations on the given handle; tests share it with
// their in-memory databases.
func Migrate(db *gorm.DB) error {
	catalogModels := []interface{}{
		&models.PriceCategory{},
		&models.ItemType{},
		&models.Item{},
	}

	for _, model := range catalogModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	auctionModels := []interface{}{
		&models.AuctionSet{},
		&models.Auction{},
		&models.Bidder{},
		&models.Bid{},
		&models.Invoice{},
	}

	for _, model := range auctionModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	externalModels := []interface{}{
		&models.Source{},
		&models.Target{},
		&models.ExternalRef{},
		&models.ExternalToken{},
	}

	for _, model := range externalModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// At most one tail per chain: the partial unique index turns a
	// racing appender into a constraint violation instead of a fork.
	if db.Dialector.Name() == "postgres" {
		err := db.Exec(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_tail ON bids (auction_id) WHERE next_bid_id IS NULL",
		).Error
		if err != nil {
			return fmt.Errorf("failed to create tail index: %w", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
