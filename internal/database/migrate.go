package database

import (
	"gorm.io/gorm"

	"github.com/mediguide/backend/internal/models"
)

// Migrate creates or updates the application tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Medicine{},
		&models.CabinetEntry{},
		&models.Schedule{},
		&models.IntakeLog{},
	)
}
