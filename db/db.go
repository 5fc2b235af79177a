package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Asibe-Cheta/soundbridge-sub006/models"
	"github.com/Asibe-Cheta/soundbridge-sub006/utils"
)

// Connect opens the Postgres connection and runs the migrations. The handle
// is passed down explicitly; there is no package-level connection.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL is not configured")
	}

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: utils.GetGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	err = database.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.SubscriptionRefund{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	utils.LogSuccess("Database connection successful")
	return database, nil
}
