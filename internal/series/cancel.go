package series

import (
	"fmt"
	"time"

	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/recurrence"
	"gorm.io/gorm"
)

// CancelRequest removes one occurrence, an occurrence and everything after
// it, or a whole series. Date selects the occurrence for single and
// this_and_future; when ExceptionID is set the exception's original date
// is used instead.
type CancelRequest struct {
	Scope         Scope
	EventMasterID string
	ExceptionID   string
	Date          time.Time
}

// Cancel applies req atomically.
func Cancel(db *gorm.DB, req CancelRequest) error {
	if !req.Scope.Valid() {
		return fmt.Errorf("series: cancel: %w", errs.Invalid("unknown scope %q", req.Scope))
	}
	if req.EventMasterID == "" && req.ExceptionID == "" {
		return fmt.Errorf("series: cancel: %w", errs.Invalid("master id or exception id is required"))
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		switch req.Scope {
		case ScopeSingle:
			return cancelSingle(tx, req)
		case ScopeThisAndFuture:
			return cancelFuture(tx, req)
		default:
			return cancelAll(tx, req)
		}
	})
	if err != nil {
		return fmt.Errorf("series: cancel %s: %w", req.Scope, err)
	}
	return nil
}

// resolveTarget returns the master id and the selected instant, reading
// both from the exception when one is named.
func resolveTarget(tx *gorm.DB, masterID, exceptionID string, date time.Time) (string, time.Time, error) {
	if exceptionID == "" {
		if date.IsZero() {
			return "", time.Time{}, errs.Invalid("date is required")
		}
		return masterID, recurrence.Normalize(date), nil
	}
	ex, err := loadException(tx, exceptionID, masterID)
	if err != nil {
		return "", time.Time{}, err
	}
	return ex.EventMasterID, recurrence.Normalize(ex.OriginalDate), nil
}

func cancelSingle(tx *gorm.DB, req CancelRequest) error {
	if req.ExceptionID != "" {
		ex, err := loadException(tx, req.ExceptionID, req.EventMasterID)
		if err != nil {
			return err
		}
		if _, _, err := lockMaster(tx, ex.EventMasterID); err != nil {
			return err
		}
		if err := tx.Delete(ex).Error; err != nil {
			return fmt.Errorf("delete exception %s: %w", ex.ID, err)
		}
		return writeCancellation(tx, ex.EventMasterID, ex.OriginalDate)
	}

	if req.Date.IsZero() {
		return errs.Invalid("date is required")
	}
	m, rule, err := lockMaster(tx, req.EventMasterID)
	if err != nil {
		return err
	}
	occ, ok, err := recurrence.OccurrenceOn(rule, m.DateStart, req.Date)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("master %s has no occurrence on %s", m.ID, recurrence.DayKey(req.Date))
	}
	cancelled, err := cancelledOn(tx, m.ID, occ)
	if err != nil {
		return err
	}
	if cancelled {
		return errs.NotFound("occurrence of master %s on %s is already cancelled", m.ID, recurrence.DayKey(occ))
	}
	ex, err := exceptionOn(tx, m.ID, occ)
	if err != nil {
		return err
	}
	if ex != nil {
		if err := tx.Delete(ex).Error; err != nil {
			return fmt.Errorf("delete exception %s: %w", ex.ID, err)
		}
		occ = ex.OriginalDate
	}
	return writeCancellation(tx, m.ID, occ)
}

func cancelFuture(tx *gorm.DB, req CancelRequest) error {
	masterID, cutoff, err := resolveTarget(tx, req.EventMasterID, req.ExceptionID, req.Date)
	if err != nil {
		return err
	}
	m, rule, err := lockMaster(tx, masterID)
	if err != nil {
		return err
	}
	if cutoff.Before(m.DateStart) {
		return errs.Invalid("cutoff %s is before the series starts", cutoff.Format(time.RFC3339))
	}

	if err := deleteOverridesFrom(tx, m.ID, cutoff); err != nil {
		return err
	}
	prev, ok, err := recurrence.LastBefore(rule, m.DateStart, cutoff)
	if err != nil {
		return err
	}
	if !ok {
		return deleteMaster(tx, m.ID)
	}
	return shorten(tx, m, rule, prev)
}

func cancelAll(tx *gorm.DB, req CancelRequest) error {
	masterID := req.EventMasterID
	if masterID == "" {
		ex, err := loadException(tx, req.ExceptionID, "")
		if err != nil {
			return err
		}
		masterID = ex.EventMasterID
	}
	if _, _, err := lockMaster(tx, masterID); err != nil {
		return err
	}
	return deleteMaster(tx, masterID)
}
