// Package teamconfig reads and writes the per-team configuration blob,
// including the care-task materialization cursor.
package teamconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// App is the config namespace owned by the care-task engine.
const App = "care"

// CursorKey is the settings key holding the materialization cursor.
const CursorKey = "clonedCareTasksUntil"

// Settings is the typed view of the keys this engine reads.
type Settings struct {
	ClonedCareTasksUntil *time.Time `json:"clonedCareTasksUntil,omitempty"`
}

// Config is a team's settings together with the row version they were
// read at.
type Config struct {
	TeamID   string
	Settings Settings
	Version  int64
}

// Get returns the team's configuration. A team with no row yet gets empty
// settings at version 0.
func Get(db *gorm.DB, teamID string) (*Config, error) {
	var row models.TeamConfig
	err := db.Where("team_id = ? AND app = ?", teamID, App).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Config{TeamID: teamID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("teamconfig: get %s: %w", teamID, err)
	}
	return decode(&row)
}

// Cursor returns the team's materialization cursor, nil if nothing has
// been materialized yet.
func Cursor(db *gorm.DB, teamID string) (*time.Time, error) {
	cfg, err := Get(db, teamID)
	if err != nil {
		return nil, err
	}
	return cfg.Settings.ClonedCareTasksUntil, nil
}

// Cursors returns the cursors of several teams keyed by team id. Teams
// without a cursor are absent from the map.
func Cursors(db *gorm.DB, teamIDs []string) (map[string]time.Time, error) {
	var rows []models.TeamConfig
	if err := db.Where("team_id IN ? AND app = ?", teamIDs, App).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("teamconfig: get cursors: %w", err)
	}
	out := make(map[string]time.Time, len(rows))
	for i := range rows {
		cfg, err := decode(&rows[i])
		if err != nil {
			return nil, err
		}
		if c := cfg.Settings.ClonedCareTasksUntil; c != nil {
			out[cfg.TeamID] = *c
		}
	}
	return out, nil
}

// Lock returns the team's configuration with its row locked for the rest
// of tx, creating the row first if needed. Callers use it to serialize
// materialization per team.
func Lock(tx *gorm.DB, teamID string) (*Config, error) {
	row, err := lockRow(tx, teamID)
	if err != nil {
		return nil, err
	}
	return decode(row)
}

// Upsert merges patch into the team's settings blob, keeping keys it does
// not name. A nil value removes the key.
func Upsert(db *gorm.DB, teamID string, patch map[string]any) error {
	return db.Transaction(func(tx *gorm.DB) error {
		row, err := lockRow(tx, teamID)
		if err != nil {
			return err
		}
		return write(tx, row, patch)
	})
}

// AdvanceCursor moves the team's cursor forward to until. It must run on a
// transaction handle; the row is locked for the rest of that transaction.
// Moving the cursor backward, or losing a concurrent write, is a Conflict.
// Advancing to the current value is a no-op.
func AdvanceCursor(tx *gorm.DB, teamID string, until time.Time) error {
	until = recurrence.Normalize(until)
	row, err := lockRow(tx, teamID)
	if err != nil {
		return err
	}
	cfg, err := decode(row)
	if err != nil {
		return err
	}
	if cur := cfg.Settings.ClonedCareTasksUntil; cur != nil {
		if until.Before(*cur) {
			return fmt.Errorf("teamconfig: advance cursor: %w",
				errs.Conflict("team %s cursor is at %s, refusing to move it back to %s", teamID, cur.Format(time.RFC3339), until.Format(time.RFC3339)))
		}
		if until.Equal(*cur) {
			return nil
		}
	}
	return write(tx, row, map[string]any{CursorKey: until.Format(time.RFC3339)})
}

// lockRow returns the team's config row, creating it first if missing,
// and locks it for update.
func lockRow(tx *gorm.DB, teamID string) (*models.TeamConfig, error) {
	seed := models.TeamConfig{TeamID: teamID, App: App, Settings: datatypes.JSON("{}")}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "app"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("teamconfig: create %s: %w", teamID, err)
	}

	var row models.TeamConfig
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("team_id = ? AND app = ?", teamID, App).
		First(&row).Error; err != nil {
		return nil, fmt.Errorf("teamconfig: lock %s: %w", teamID, err)
	}
	return &row, nil
}

// write stores the merged blob with a compare-and-swap on the row version.
func write(tx *gorm.DB, row *models.TeamConfig, patch map[string]any) error {
	blob := map[string]any{}
	if len(row.Settings) > 0 {
		if err := json.Unmarshal(row.Settings, &blob); err != nil {
			return fmt.Errorf("teamconfig: decode %s: %w", row.TeamID, err)
		}
	}
	for k, v := range patch {
		if v == nil {
			delete(blob, k)
			continue
		}
		blob[k] = v
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("teamconfig: encode %s: %w", row.TeamID, err)
	}

	result := tx.Model(&models.TeamConfig{}).
		Where("id = ? AND version = ?", row.ID, row.Version).
		Updates(map[string]any{"settings": datatypes.JSON(data), "version": row.Version + 1})
	if result.Error != nil {
		return fmt.Errorf("teamconfig: update %s: %w", row.TeamID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("teamconfig: update %s: %w", row.TeamID, errs.Conflict("settings changed concurrently"))
	}
	row.Settings = datatypes.JSON(data)
	row.Version++
	return nil
}

func decode(row *models.TeamConfig) (*Config, error) {
	cfg := &Config{TeamID: row.TeamID, Version: row.Version}
	if len(row.Settings) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(row.Settings, &cfg.Settings); err != nil {
		return nil, fmt.Errorf("teamconfig: decode %s: %w", row.TeamID, err)
	}
	if c := cfg.Settings.ClonedCareTasksUntil; c != nil {
		n := recurrence.Normalize(*c)
		cfg.Settings.ClonedCareTasksUntil = &n
	}
	return cfg, nil
}
