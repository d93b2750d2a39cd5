package migrations

import (
	"github.com/Rakhulsr/axen-cart/app/models"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.StorageEntry{}, &models.StorageChange{})
}
