package models

import (
	"time"

	"gorm.io/datatypes"
)

// TeamConfig stores a per-team, per-app settings blob. Version increments on
// every write so concurrent writers can detect a lost update.
type TeamConfig struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	TeamID    string         `gorm:"size:64;not null;uniqueIndex:ux_team_config_app,priority:1"`
	App       string         `gorm:"size:32;not null;uniqueIndex:ux_team_config_app,priority:2"`
	Settings  datatypes.JSON
	Version   int64 `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
