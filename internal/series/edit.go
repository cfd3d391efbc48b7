package series

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"gorm.io/gorm"
)

// EditRequest changes one occurrence, an occurrence and everything after
// it, or a whole series. Nil fields are left unchanged. NewDate moves the
// occurrence (single) or the series start (this_and_future, all). Rule is
// not accepted for single edits.
type EditRequest struct {
	Scope         Scope
	EventMasterID string
	ExceptionID   string
	Date          time.Time
	Title         *string
	Description   *string
	Kind          *models.EventKind
	NewDate       *time.Time
	Rule          *recurrence.Rule
	UserID        string
}

// EditResult names the rows an edit produced or touched. EventMasterID is
// the master that now owns the edited occurrences; Split is set when a
// this_and_future edit created it.
type EditResult struct {
	EventMasterID string
	ExceptionID   string
	Split         bool
}

// Edit applies req atomically.
func Edit(db *gorm.DB, req EditRequest) (*EditResult, error) {
	if err := validateEdit(req); err != nil {
		return nil, fmt.Errorf("series: edit: %w", err)
	}

	var res *EditResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		switch req.Scope {
		case ScopeSingle:
			res, err = editSingle(tx, req)
		case ScopeThisAndFuture:
			res, err = editFuture(tx, req)
		default:
			res, err = editAll(tx, req)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("series: edit %s: %w", req.Scope, err)
	}
	return res, nil
}

func validateEdit(req EditRequest) error {
	if !req.Scope.Valid() {
		return errs.Invalid("unknown scope %q", req.Scope)
	}
	if req.EventMasterID == "" && req.ExceptionID == "" {
		return errs.Invalid("master id or exception id is required")
	}
	if req.Kind != nil && !req.Kind.Valid() {
		return errs.Invalid("unknown kind %q", *req.Kind)
	}
	if req.Rule != nil {
		if req.Scope == ScopeSingle {
			return errs.Invalid("a single occurrence cannot change the recurrence rule")
		}
		if err := req.Rule.Validate(); err != nil {
			return errs.Invalid("%v", err)
		}
	}
	if req.Scope != ScopeSingle && req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return errs.Invalid("title must not be empty")
	}
	return nil
}

func editSingle(tx *gorm.DB, req EditRequest) (*EditResult, error) {
	if req.ExceptionID != "" {
		ex, err := loadException(tx, req.ExceptionID, req.EventMasterID)
		if err != nil {
			return nil, err
		}
		if _, _, err := lockMaster(tx, ex.EventMasterID); err != nil {
			return nil, err
		}
		return saveException(tx, ex, req)
	}

	if req.Date.IsZero() {
		return nil, errs.Invalid("date is required")
	}
	m, rule, err := lockMaster(tx, req.EventMasterID)
	if err != nil {
		return nil, err
	}
	occ, ok, err := recurrence.OccurrenceOn(rule, m.DateStart, req.Date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("master %s has no occurrence on %s", m.ID, recurrence.DayKey(req.Date))
	}
	cancelled, err := cancelledOn(tx, m.ID, occ)
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, errs.NotFound("occurrence of master %s on %s is cancelled", m.ID, recurrence.DayKey(occ))
	}

	ex, err := exceptionOn(tx, m.ID, occ)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		ex = &models.EventException{
			EventMasterID: m.ID,
			OriginalDate:  occ,
			NewDate:       occ,
		}
	}
	return saveException(tx, ex, req)
}

// saveException applies the request's overrides to ex and writes it,
// inserting when ex has no id yet.
func saveException(tx *gorm.DB, ex *models.EventException, req EditRequest) (*EditResult, error) {
	if req.Title != nil {
		ex.Title = models.Set(*req.Title)
	}
	if req.Description != nil {
		ex.Description = models.Set(*req.Description)
	}
	if req.Kind != nil {
		ex.Kind = models.Set(*req.Kind)
	}
	if req.NewDate != nil {
		ex.NewDate = recurrence.Normalize(*req.NewDate)
	}

	if ex.ID == "" {
		ex.ID = uuid.NewString()
		if err := tx.Create(ex).Error; err != nil {
			return nil, fmt.Errorf("create exception: %w", err)
		}
	} else if err := tx.Save(ex).Error; err != nil {
		return nil, fmt.Errorf("update exception %s: %w", ex.ID, err)
	}
	return &EditResult{EventMasterID: ex.EventMasterID, ExceptionID: ex.ID}, nil
}

// fieldChanges applies the fixed-field part of req to m and returns the
// override columns whose master value changed.
func fieldChanges(m *models.EventMaster, req EditRequest) []string {
	var cols []string
	if req.Title != nil && *req.Title != m.Title {
		m.Title = *req.Title
		cols = append(cols, "title")
	}
	if req.Description != nil && *req.Description != m.Description {
		m.Description = *req.Description
		cols = append(cols, "description")
	}
	if req.Kind != nil && *req.Kind != m.Kind {
		m.Kind = *req.Kind
		cols = append(cols, "kind")
	}
	return cols
}

// reinherit clears the given override columns on the master's exceptions
// at or after from, so they pick up the master's new values.
func reinherit(tx *gorm.DB, masterID string, from *time.Time, cols []string) error {
	if len(cols) == 0 {
		return nil
	}
	nulls := make(map[string]any, len(cols))
	for _, c := range cols {
		nulls[c] = nil
	}
	q := tx.Model(&models.EventException{}).Where("event_master_id = ?", masterID)
	if from != nil {
		q = q.Where("original_date >= ?", *from)
	}
	if err := q.Updates(nulls).Error; err != nil {
		return fmt.Errorf("reset exception overrides: %w", err)
	}
	return nil
}

// saveMaster writes the master's editable columns, recomputing DateUntil
// from its rule and start.
func saveMaster(tx *gorm.DB, m *models.EventMaster, rule recurrence.Rule) error {
	until, err := recurrence.LastOccurrence(rule, m.DateStart)
	if err != nil {
		return err
	}
	if until != nil && until.Before(m.DateStart) {
		return errs.Invalid("rule ends before the series starts")
	}
	m.RRule = rule.String()
	m.DateUntil = until
	if err := tx.Model(&models.EventMaster{}).Where("id = ?", m.ID).Updates(map[string]any{
		"title":       m.Title,
		"description": m.Description,
		"kind":        m.Kind,
		"rrule":       m.RRule,
		"date_start":  m.DateStart,
		"date_until":  m.DateUntil,
	}).Error; err != nil {
		return fmt.Errorf("update master %s: %w", m.ID, err)
	}
	return nil
}

func editAll(tx *gorm.DB, req EditRequest) (*EditResult, error) {
	masterID := req.EventMasterID
	if masterID == "" {
		ex, err := loadException(tx, req.ExceptionID, "")
		if err != nil {
			return nil, err
		}
		masterID = ex.EventMasterID
	}
	m, rule, err := lockMaster(tx, masterID)
	if err != nil {
		return nil, err
	}

	fromChanged := req.NewDate != nil && !recurrence.Normalize(*req.NewDate).Equal(m.DateStart)
	newRule := rule
	if req.Rule != nil {
		newRule = *req.Rule
	}
	cadenceChanged := !newRule.SameCadence(rule)
	boundsChanged := !newRule.SameBounds(rule)

	cols := fieldChanges(m, req)
	if fromChanged {
		m.DateStart = recurrence.Normalize(*req.NewDate)
	}
	if err := saveMaster(tx, m, newRule); err != nil {
		return nil, err
	}

	switch {
	case fromChanged || cadenceChanged:
		if err := deleteOverridesFrom(tx, m.ID, time.Time{}); err != nil {
			return nil, err
		}
	case boundsChanged && m.DateUntil != nil:
		if err := deleteOverridesAfter(tx, m.ID, *m.DateUntil); err != nil {
			return nil, err
		}
	}
	if err := reinherit(tx, m.ID, nil, cols); err != nil {
		return nil, err
	}
	return &EditResult{EventMasterID: m.ID}, nil
}

func editFuture(tx *gorm.DB, req EditRequest) (*EditResult, error) {
	masterID, cutoff, err := resolveTarget(tx, req.EventMasterID, req.ExceptionID, req.Date)
	if err != nil {
		return nil, err
	}
	m, rule, err := lockMaster(tx, masterID)
	if err != nil {
		return nil, err
	}
	if cutoff.Before(m.DateStart) {
		return nil, errs.Invalid("cutoff %s is before the series starts", cutoff.Format(time.RFC3339))
	}

	newRule := rule
	if req.Rule != nil {
		newRule = *req.Rule
	}
	timely := req.NewDate != nil || !newRule.SameCadence(rule) || !newRule.SameBounds(rule)
	if timely {
		if err := deleteOverridesFrom(tx, m.ID, cutoff); err != nil {
			return nil, err
		}
	}

	prev, ok, err := recurrence.LastBefore(rule, m.DateStart, cutoff)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Nothing precedes the cutoff: the whole series is edited in place.
		cols := fieldChanges(m, req)
		if req.NewDate != nil {
			m.DateStart = recurrence.Normalize(*req.NewDate)
		}
		if err := saveMaster(tx, m, newRule); err != nil {
			return nil, err
		}
		if !timely {
			if err := reinherit(tx, m.ID, nil, cols); err != nil {
				return nil, err
			}
		}
		return &EditResult{EventMasterID: m.ID}, nil
	}

	first, ok, err := recurrence.FirstAtOrAfter(rule, m.DateStart, cutoff)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("master %s has no occurrence at or after %s", m.ID, cutoff.Format(time.RFC3339))
	}

	tailStart := first
	if req.NewDate != nil {
		tailStart = recurrence.Normalize(*req.NewDate)
	}
	if req.Rule == nil && rule.Count > 0 {
		done, err := recurrence.CountBefore(rule, m.DateStart, cutoff)
		if err != nil {
			return nil, err
		}
		newRule.Count = rule.Count - done
	}

	tail := models.EventMaster{
		ID:          uuid.NewString(),
		TeamID:      m.TeamID,
		Title:       m.Title,
		Description: m.Description,
		Kind:        m.Kind,
		DateStart:   tailStart,
		CreatedBy:   m.CreatedBy,
	}
	if req.UserID != "" {
		tail.CreatedBy = req.UserID
	}
	cols := fieldChanges(&tail, req)
	until, err := recurrence.LastOccurrence(newRule, tail.DateStart)
	if err != nil {
		return nil, err
	}
	if until != nil && until.Before(tail.DateStart) {
		return nil, errs.Invalid("rule ends before the series starts")
	}
	tail.RRule = newRule.String()
	tail.DateUntil = until

	// Create the tail, move surviving overrides onto it, then close the
	// original series.
	if err := tx.Create(&tail).Error; err != nil {
		return nil, fmt.Errorf("create tail master: %w", err)
	}
	if err := tx.Model(&models.EventException{}).
		Where("event_master_id = ? AND original_date >= ?", m.ID, cutoff).
		Update("event_master_id", tail.ID).Error; err != nil {
		return nil, fmt.Errorf("move exceptions to %s: %w", tail.ID, err)
	}
	if err := tx.Model(&models.EventCancellation{}).
		Where("event_master_id = ? AND original_date >= ?", m.ID, cutoff).
		Update("event_master_id", tail.ID).Error; err != nil {
		return nil, fmt.Errorf("move cancellations to %s: %w", tail.ID, err)
	}
	if err := reinherit(tx, tail.ID, nil, cols); err != nil {
		return nil, err
	}
	if err := shorten(tx, m, rule, prev); err != nil {
		return nil, err
	}
	return &EditResult{EventMasterID: tail.ID, Split: true}, nil
}
