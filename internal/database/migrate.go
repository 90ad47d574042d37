package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate brings the schema up to date for every registered model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}
