// Package caretask promotes projected calendar events into persisted,
// completion-tracked care tasks and lists persisted and projected tasks
// together.
package caretask

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/carecal/internal/calendar"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"github.com/zulandar/carecal/internal/series"
	"github.com/zulandar/carecal/internal/teamconfig"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaterializeOpts holds optional parameters for a materialization run.
type MaterializeOpts struct {
	ShiftID string // stamped on every inserted task
}

// Result reports what a materialization run did.
type Result struct {
	TeamID   string
	Inserted int
	Cursor   *time.Time
}

// Materialize persists a care task for every projected event of the team
// in [start, end] that lies after the team's cursor, then advances the
// cursor to end. Dates at or before the cursor are never materialized
// again. Windows that end at or before the cursor are a no-op.
func Materialize(db *gorm.DB, teamID string, start, end time.Time, opts MaterializeOpts) (*Result, error) {
	res, err := materialize(db, teamID, start, end, opts, false)
	if err != nil {
		return nil, fmt.Errorf("caretask: materialize %s: %w", teamID, err)
	}
	return res, nil
}

// MaterializeUntil is Materialize for explicit requests: a window that does
// not reach past the cursor is Forbidden rather than ignored.
func MaterializeUntil(db *gorm.DB, teamID string, start, end time.Time, opts MaterializeOpts) (*Result, error) {
	res, err := materialize(db, teamID, start, end, opts, true)
	if err != nil {
		return nil, fmt.Errorf("caretask: materialize until %s: %w", teamID, err)
	}
	return res, nil
}

func materialize(db *gorm.DB, teamID string, start, end time.Time, opts MaterializeOpts, strict bool) (*Result, error) {
	if teamID == "" {
		return nil, errs.Invalid("team id is required")
	}
	start, end = recurrence.Normalize(start), recurrence.Normalize(end)
	if end.Before(start) {
		return nil, errs.Invalid("window end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	res := &Result{TeamID: teamID}
	err := db.Transaction(func(tx *gorm.DB) error {
		cfg, err := teamconfig.Lock(tx, teamID)
		if err != nil {
			return err
		}
		cursor := cfg.Settings.ClonedCareTasksUntil
		res.Cursor = cursor
		if cursor != nil {
			if !end.After(*cursor) {
				if strict {
					return errs.Forbidden("team %s is already materialized until %s", teamID, cursor.Format(time.RFC3339))
				}
				return nil
			}
			if !start.After(*cursor) {
				start = cursor.Add(time.Second)
			}
		}

		events, err := calendar.Project(tx, []string{teamID}, start, end, false)
		if err != nil {
			return err
		}
		tasks, err := missingTasks(tx, teamID, start, end, events, opts)
		if err != nil {
			return err
		}
		if len(tasks) > 0 {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "team_id"}, {Name: "event_master_id"}, {Name: "date"}},
				DoNothing: true,
			}).CreateInBatches(&tasks, 200)
			if result.Error != nil {
				return fmt.Errorf("insert tasks: %w", result.Error)
			}
			res.Inserted = int(result.RowsAffected)
		}

		if err := teamconfig.AdvanceCursor(tx, teamID, end); err != nil {
			return err
		}
		res.Cursor = &end
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// missingTasks builds a task for each event that has no persisted row at
// the same (master, date).
func missingTasks(tx *gorm.DB, teamID string, start, end time.Time, events []calendar.VirtualEvent, opts MaterializeOpts) ([]models.CareTask, error) {
	var existing []models.CareTask
	if err := tx.Select("event_master_id", "date").
		Where("team_id = ? AND event_master_id IS NOT NULL AND date >= ? AND date <= ?", teamID, start, end).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load existing tasks: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[taskKey(*t.EventMasterID, t.Date)] = true
	}

	var shiftID *string
	if opts.ShiftID != "" {
		shiftID = &opts.ShiftID
	}
	var tasks []models.CareTask
	for _, e := range events {
		key := taskKey(e.EventMasterID, e.Date)
		if have[key] {
			continue
		}
		have[key] = true
		masterID := e.EventMasterID
		tasks = append(tasks, models.CareTask{
			ID:            uuid.NewString(),
			TeamID:        teamID,
			EventMasterID: &masterID,
			Date:          e.Date,
			Title:         e.Title,
			Description:   e.Description,
			Kind:          e.Kind,
			CreatedBy:     e.CreatedBy,
			ShiftID:       shiftID,
		})
	}
	return tasks, nil
}

func taskKey(masterID string, date time.Time) string {
	return masterID + "|" + recurrence.Normalize(date).Format(time.RFC3339)
}

// CatchUp materializes every team that owns a recurring event up to
// now+horizon, starting from each team's cursor. Teams that have never
// been materialized start at the beginning of today. Failures for one
// team do not stop the others.
func CatchUp(db *gorm.DB, now time.Time, horizon time.Duration) ([]Result, error) {
	teams, err := series.TeamsWithMasters(db)
	if err != nil {
		return nil, fmt.Errorf("caretask: catch up: %w", err)
	}

	end := recurrence.Normalize(now.Add(horizon))
	var results []Result
	var errList []error
	for _, team := range teams {
		start := recurrence.DayStart(now)
		cursor, err := teamconfig.Cursor(db, team)
		if err != nil {
			errList = append(errList, err)
			continue
		}
		if cursor != nil {
			if !end.After(*cursor) {
				results = append(results, Result{TeamID: team, Cursor: cursor})
				continue
			}
			start = *cursor
		}
		res, err := Materialize(db, team, start, end, MaterializeOpts{})
		if err != nil {
			errList = append(errList, err)
			continue
		}
		results = append(results, *res)
	}
	return results, errors.Join(errList...)
}
