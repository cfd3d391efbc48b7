// Package shift tracks caregiver shifts and fires the materialization
// triggers tied to them.
package shift

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/carecal/internal/caretask"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"github.com/zulandar/carecal/internal/teamconfig"
	"gorm.io/gorm"
)

// DefaultLookahead is how far past check-in a new shift materializes.
const DefaultLookahead = 24 * time.Hour

// StartOpts holds parameters for starting a shift.
type StartOpts struct {
	TeamID      string
	CaregiverID string
	Now         time.Time     // defaults to time.Now()
	Lookahead   time.Duration // defaults to DefaultLookahead
}

// Started is a new shift and the materialization run it triggered.
type Started struct {
	Shift       *models.Shift
	Materialize *caretask.Result
}

// Start checks a caregiver in. Any shift still active for the team is
// checked out first. Care tasks from the team's cursor up to
// Now+Lookahead are materialized and stamped with the new shift.
func Start(db *gorm.DB, opts StartOpts) (*Started, error) {
	if opts.TeamID == "" {
		return nil, fmt.Errorf("shift: start: %w", errs.Invalid("team id is required"))
	}
	if opts.CaregiverID == "" {
		return nil, fmt.Errorf("shift: start: %w", errs.Invalid("caregiver id is required"))
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = DefaultLookahead
	}
	now := recurrence.Normalize(opts.Now)

	s := models.Shift{
		ID:          uuid.NewString(),
		TeamID:      opts.TeamID,
		CaregiverID: opts.CaregiverID,
		CheckedInAt: now,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Shift{}).
			Where("team_id = ? AND checked_out_at IS NULL", opts.TeamID).
			Update("checked_out_at", now).Error; err != nil {
			return fmt.Errorf("check out previous shift: %w", err)
		}
		return tx.Create(&s).Error
	})
	if err != nil {
		return nil, fmt.Errorf("shift: start: %w", err)
	}

	start, err := materializeFrom(db, opts.TeamID, now)
	if err != nil {
		return nil, err
	}
	end := now.Add(opts.Lookahead)
	if end.Before(start) {
		start = end
	}
	res, err := caretask.Materialize(db, opts.TeamID, start, end, caretask.MaterializeOpts{ShiftID: s.ID})
	if err != nil {
		return nil, fmt.Errorf("shift: start: %w", err)
	}
	return &Started{Shift: &s, Materialize: res}, nil
}

// Get returns a shift by id.
func Get(db *gorm.DB, shiftID string) (*models.Shift, error) {
	var s models.Shift
	if err := db.Where("id = ?", shiftID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shift: get: %w", errs.NotFound("shift %s", shiftID))
		}
		return nil, fmt.Errorf("shift: get %s: %w", shiftID, err)
	}
	return &s, nil
}

// End checks a shift out.
func End(db *gorm.DB, shiftID string, now time.Time) (*models.Shift, error) {
	s, err := Get(db, shiftID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, fmt.Errorf("shift: end: %w", errs.Conflict("shift %s is already checked out", shiftID))
	}
	out := recurrence.Normalize(now)
	if err := db.Model(s).Update("checked_out_at", out).Error; err != nil {
		return nil, fmt.Errorf("shift: end %s: %w", shiftID, err)
	}
	s.CheckedOutAt = &out
	return s, nil
}

// Current returns the team's active shift. A team with no active shift
// gets an error matching errs.ErrNotFound.
func Current(db *gorm.DB, teamID string) (*models.Shift, error) {
	var s models.Shift
	err := db.Where("team_id = ? AND checked_out_at IS NULL", teamID).
		Order("checked_in_at DESC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shift: current: %w", errs.NotFound("no active shift for team %s", teamID))
		}
		return nil, fmt.Errorf("shift: current %s: %w", teamID, err)
	}
	return &s, nil
}

// Unlock materializes the team's care tasks up to until on behalf of the
// active shift. It is Forbidden without an active shift or when until is
// not after the team's cursor.
func Unlock(db *gorm.DB, teamID string, until, now time.Time) (*caretask.Result, error) {
	s, err := Current(db, teamID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("shift: unlock: %w", errs.Forbidden("team %s has no active shift", teamID))
		}
		return nil, err
	}
	start, err := materializeFrom(db, teamID, now)
	if err != nil {
		return nil, err
	}
	if until.Before(start) {
		start = until
	}
	res, err := caretask.MaterializeUntil(db, teamID, start, until, caretask.MaterializeOpts{ShiftID: s.ID})
	if err != nil {
		return nil, fmt.Errorf("shift: unlock: %w", err)
	}
	return res, nil
}

// materializeFrom is the team's cursor, or the start of now's day for a
// team that has never been materialized.
func materializeFrom(db *gorm.DB, teamID string, now time.Time) (time.Time, error) {
	cursor, err := teamconfig.Cursor(db, teamID)
	if err != nil {
		return time.Time{}, fmt.Errorf("shift: %w", err)
	}
	if cursor != nil {
		return *cursor, nil
	}
	return recurrence.DayStart(now), nil
}
