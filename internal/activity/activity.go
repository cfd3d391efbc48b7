// Package activity records before/after diffs of edits to team entities.
package activity

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/zulandar/carecal/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Change is one field's value before and after an edit.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Entry is an activity record to be written.
type Entry struct {
	TeamID     string
	EntityType string
	EntityID   string
	UserID     string
	Diff       map[string]Change
}

// Diff returns the fields whose values differ between before and after.
// Fields present on one side only are reported with nil on the other.
func Diff(before, after map[string]any) map[string]Change {
	out := make(map[string]Change)
	for k, b := range before {
		a, ok := after[k]
		if !ok || !reflect.DeepEqual(a, b) {
			out[k] = Change{Before: b, After: a}
		}
	}
	for k, a := range after {
		if _, ok := before[k]; !ok {
			out[k] = Change{Before: nil, After: a}
		}
	}
	return out
}

// Fields lists the keys of a diff in sorted order.
func Fields(diff map[string]Change) []string {
	keys := make([]string, 0, len(diff))
	for k := range diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Log writes an activity record. An empty diff is not recorded and
// returns nil.
func Log(db *gorm.DB, e Entry) (*models.ActivityLog, error) {
	if e.EntityID == "" {
		return nil, fmt.Errorf("activity: entity id is required")
	}
	if len(e.Diff) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(e.Diff)
	if err != nil {
		return nil, fmt.Errorf("activity: encode diff for %s: %w", e.EntityID, err)
	}

	rec := models.ActivityLog{
		TeamID:     e.TeamID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		Diff:       datatypes.JSON(data),
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("activity: log %s: %w", e.EntityID, err)
	}
	return &rec, nil
}

// List returns the activity of one entity, newest first. A limit of zero
// or less returns everything.
func List(db *gorm.DB, entityID string, limit int) ([]models.ActivityLog, error) {
	q := db.Where("entity_id = ?", entityID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var logs []models.ActivityLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("activity: list %s: %w", entityID, err)
	}
	return logs, nil
}

// Decode returns the diff stored on a record.
func Decode(rec *models.ActivityLog) (map[string]Change, error) {
	var diff map[string]Change
	if err := json.Unmarshal(rec.Diff, &diff); err != nil {
		return nil, fmt.Errorf("activity: decode diff %d: %w", rec.ID, err)
	}
	return diff, nil
}
