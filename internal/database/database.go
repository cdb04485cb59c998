package database

import (
	"fmt"

	"onlyz-dating-server/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Migrate keeps the schema in sync with the models. Also used by tests
// against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Interest{},
		&models.Like{},
		&models.Block{},
		&models.Report{},
		&models.Message{},
		&models.Notification{},
	)
}

// SeedInterests fills the selectable interest catalogue. Idempotent.
func SeedInterests(db *gorm.DB) error {
	names := []string{
		"Music", "Movies", "Sports", "Fitness", "Travel", "Photography",
		"Cooking", "Reading", "Gaming", "Dancing", "Art", "Technology",
		"Nature", "Fashion", "Food", "Coffee", "Wine", "Adventure",
		"Yoga", "Meditation", "Volunteering", "Languages", "Culture",
	}

	for _, name := range names {
		interest := models.Interest{Name: name}
		if err := db.FirstOrCreate(&interest, models.Interest{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to seed interest %s: %w", name, err)
		}
	}
	return nil
}
