// Package series creates and mutates recurring-event masters together with
// their exceptions and cancellations. Every mutation runs in one
// transaction with the master row locked.
package series

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope selects which occurrences an edit or cancel applies to.
type Scope string

const (
	ScopeSingle        Scope = "single"
	ScopeThisAndFuture Scope = "this_and_future"
	ScopeAll           Scope = "all"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeSingle || s == ScopeThisAndFuture || s == ScopeAll
}

// CreateOpts holds parameters for creating a recurring event.
type CreateOpts struct {
	TeamID      string
	Title       string
	Description string
	Kind        models.EventKind // normal (default), critical
	Rule        recurrence.Rule
	DateStart   time.Time
	CreatedBy   string
}

// Create stores a new master. DateUntil is derived from the rule so that
// window queries can skip finished series.
func Create(db *gorm.DB, opts CreateOpts) (*models.EventMaster, error) {
	if opts.TeamID == "" {
		return nil, fmt.Errorf("series: create: %w", errs.Invalid("team id is required"))
	}
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("series: create: %w", errs.Invalid("title is required"))
	}
	if opts.DateStart.IsZero() {
		return nil, fmt.Errorf("series: create: %w", errs.Invalid("start date is required"))
	}
	if opts.Kind == "" {
		opts.Kind = models.KindNormal
	}
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("series: create: %w", errs.Invalid("unknown kind %q", opts.Kind))
	}
	if err := opts.Rule.Validate(); err != nil {
		return nil, fmt.Errorf("series: create: %w", errs.Invalid("%v", err))
	}

	start := recurrence.Normalize(opts.DateStart)
	until, err := recurrence.LastOccurrence(opts.Rule, start)
	if err != nil {
		return nil, fmt.Errorf("series: create: %w", err)
	}
	if until != nil && until.Before(start) {
		return nil, fmt.Errorf("series: create: %w", errs.Invalid("rule ends before the series starts"))
	}

	m := models.EventMaster{
		ID:          uuid.NewString(),
		TeamID:      opts.TeamID,
		Title:       opts.Title,
		Description: opts.Description,
		Kind:        opts.Kind,
		RRule:       opts.Rule.String(),
		DateStart:   start,
		DateUntil:   until,
		CreatedBy:   opts.CreatedBy,
	}
	if err := db.Create(&m).Error; err != nil {
		return nil, fmt.Errorf("series: create: %w", err)
	}
	return &m, nil
}

// Get returns a master with its exceptions and cancellations.
func Get(db *gorm.DB, id string) (*models.EventMaster, error) {
	var m models.EventMaster
	err := db.Preload("Exceptions", func(q *gorm.DB) *gorm.DB { return q.Order("original_date") }).
		Preload("Cancellations", func(q *gorm.DB) *gorm.DB { return q.Order("original_date") }).
		Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("series: get: %w", errs.NotFound("master %s", id))
		}
		return nil, fmt.Errorf("series: get %s: %w", id, err)
	}
	return &m, nil
}

// List returns the masters of the given teams ordered by start date.
func List(db *gorm.DB, teamIDs []string) ([]models.EventMaster, error) {
	if len(teamIDs) == 0 {
		return nil, fmt.Errorf("series: list: %w", errs.Invalid("at least one team id is required"))
	}
	var masters []models.EventMaster
	if err := db.Where("team_id IN ?", teamIDs).Order("date_start, id").Find(&masters).Error; err != nil {
		return nil, fmt.Errorf("series: list: %w", err)
	}
	return masters, nil
}

// TeamsWithMasters returns the distinct team ids that own at least one
// master.
func TeamsWithMasters(db *gorm.DB) ([]string, error) {
	var teams []string
	if err := db.Model(&models.EventMaster{}).Distinct("team_id").Order("team_id").Pluck("team_id", &teams).Error; err != nil {
		return nil, fmt.Errorf("series: list teams: %w", err)
	}
	return teams, nil
}

// lockMaster loads a master for update and parses its rule.
func lockMaster(tx *gorm.DB, id string) (*models.EventMaster, recurrence.Rule, error) {
	var m models.EventMaster
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recurrence.Rule{}, errs.NotFound("master %s", id)
		}
		return nil, recurrence.Rule{}, fmt.Errorf("lock master %s: %w", id, err)
	}
	rule, err := recurrence.Parse(m.RRule)
	if err != nil {
		return nil, recurrence.Rule{}, fmt.Errorf("master %s: %w", id, err)
	}
	return &m, rule, nil
}

// loadException finds an exception by id. When masterID is set the
// exception must belong to it.
func loadException(tx *gorm.DB, id, masterID string) (*models.EventException, error) {
	var ex models.EventException
	q := tx.Where("id = ?", id)
	if masterID != "" {
		q = q.Where("event_master_id = ?", masterID)
	}
	if err := q.First(&ex).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("exception %s", id)
		}
		return nil, fmt.Errorf("load exception %s: %w", id, err)
	}
	return &ex, nil
}

// exceptionOn finds the exception, if any, replacing the master's
// occurrence on day's UTC calendar day.
func exceptionOn(tx *gorm.DB, masterID string, day time.Time) (*models.EventException, error) {
	from := recurrence.DayStart(day)
	var found []models.EventException
	if err := tx.Where("event_master_id = ? AND original_date >= ? AND original_date < ?", masterID, from, from.Add(24*time.Hour)).
		Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("find exception: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func cancelledOn(tx *gorm.DB, masterID string, day time.Time) (bool, error) {
	from := recurrence.DayStart(day)
	var n int64
	if err := tx.Model(&models.EventCancellation{}).
		Where("event_master_id = ? AND original_date >= ? AND original_date < ?", masterID, from, from.Add(24*time.Hour)).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("find cancellation: %w", err)
	}
	return n > 0, nil
}

func writeCancellation(tx *gorm.DB, masterID string, original time.Time) error {
	c := models.EventCancellation{EventMasterID: masterID, OriginalDate: recurrence.Normalize(original)}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_master_id"}, {Name: "original_date"}},
		DoNothing: true,
	}).Create(&c).Error; err != nil {
		return fmt.Errorf("write cancellation: %w", err)
	}
	return nil
}

// deleteOverridesFrom removes exceptions and cancellations whose original
// date is at or after cutoff.
func deleteOverridesFrom(tx *gorm.DB, masterID string, cutoff time.Time) error {
	if err := tx.Where("event_master_id = ? AND original_date >= ?", masterID, cutoff).
		Delete(&models.EventException{}).Error; err != nil {
		return fmt.Errorf("delete exceptions: %w", err)
	}
	if err := tx.Where("event_master_id = ? AND original_date >= ?", masterID, cutoff).
		Delete(&models.EventCancellation{}).Error; err != nil {
		return fmt.Errorf("delete cancellations: %w", err)
	}
	return nil
}

// deleteOverridesAfter removes exceptions and cancellations whose original
// date is strictly after until.
func deleteOverridesAfter(tx *gorm.DB, masterID string, until time.Time) error {
	return deleteOverridesFrom(tx, masterID, until.Add(time.Second))
}

// deleteMaster removes a master with all of its overrides.
func deleteMaster(tx *gorm.DB, masterID string) error {
	if err := tx.Where("event_master_id = ?", masterID).Delete(&models.EventException{}).Error; err != nil {
		return fmt.Errorf("delete exceptions: %w", err)
	}
	if err := tx.Where("event_master_id = ?", masterID).Delete(&models.EventCancellation{}).Error; err != nil {
		return fmt.Errorf("delete cancellations: %w", err)
	}
	if err := tx.Where("id = ?", masterID).Delete(&models.EventMaster{}).Error; err != nil {
		return fmt.Errorf("delete master: %w", err)
	}
	return nil
}

// shorten ends the master at its occurrence last.
func shorten(tx *gorm.DB, m *models.EventMaster, rule recurrence.Rule, last time.Time) error {
	cut := rule.WithUntil(last)
	if err := tx.Model(&models.EventMaster{}).Where("id = ?", m.ID).Updates(map[string]any{
		"rrule":      cut.String(),
		"date_until": cut.Until,
	}).Error; err != nil {
		return fmt.Errorf("shorten master %s: %w", m.ID, err)
	}
	m.RRule = cut.String()
	m.DateUntil = cut.Until
	return nil
}
