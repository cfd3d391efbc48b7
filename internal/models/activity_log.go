package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog records a before/after diff of an edit to a team entity.
type ActivityLog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	TeamID     string `gorm:"size:64;index"`
	EntityType string `gorm:"size:32"`
	EntityID   string `gorm:"size:36;index"`
	UserID     string `gorm:"size:64"`
	Diff       datatypes.JSON
	CreatedAt  time.Time
}
