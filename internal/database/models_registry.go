package database

import "tradeconnect/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Post{},
		&models.PostImage{},
		&models.Comment{},
		&models.Like{},
		&models.Favorite{},
		&models.PostView{},
		&models.Category{},
	}
}
