package database

import "threadswap/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Item{},
		&models.ItemLike{},
		&models.Swap{},
		&models.Image{},
		&models.ImageVariant{},
	}
}
