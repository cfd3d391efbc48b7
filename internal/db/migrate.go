package db

import (
	"fmt"

	"github.com/zulandar/carecal/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model carecal persists, in creation order.
func AllModels() []interface{} {
	return []interface{}{
		&models.EventMaster{},
		&models.EventException{},
		&models.EventCancellation{},
		&models.CareTask{},
		&models.TeamConfig{},
		&models.Shift{},
		&models.ActivityLog{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every carecal table and recreates the schema.
func Reset(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("db: drop %T: %w", all[i], err)
		}
	}
	return AutoMigrate(db)
}
