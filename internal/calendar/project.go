package calendar

import (
	"fmt"
	"time"

	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"gorm.io/gorm"
)

// Project returns the virtual events of the given teams inside
// [start, end]. With onlyCritical set, only events whose resolved kind is
// critical are returned. It reads the current override state and writes
// nothing.
func Project(db *gorm.DB, teamIDs []string, start, end time.Time, onlyCritical bool) ([]VirtualEvent, error) {
	if len(teamIDs) == 0 {
		return nil, fmt.Errorf("calendar: project: %w", errs.Invalid("at least one team id is required"))
	}
	start, end = recurrence.Normalize(start), recurrence.Normalize(end)
	if end.Before(start) {
		return nil, fmt.Errorf("calendar: project: %w", errs.Invalid("window end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)))
	}

	in, err := load(db, teamIDs, start, end)
	if err != nil {
		return nil, err
	}

	events := Overlay(in)
	if !onlyCritical {
		return events, nil
	}
	critical := events[:0]
	for _, e := range events {
		if e.Kind == models.KindCritical {
			critical = append(critical, e)
		}
	}
	return critical, nil
}

// load fetches the masters overlapping the window, plus any master with an
// exception moved into the window, and the overrides that can touch it.
func load(db *gorm.DB, teamIDs []string, start, end time.Time) (OverlayInput, error) {
	in := OverlayInput{Start: start, End: end, Occurrences: make(map[string][]time.Time)}

	if err := db.Where("team_id IN ? AND date_start <= ? AND (date_until IS NULL OR date_until >= ?)", teamIDs, end, start).
		Order("date_start, id").Find(&in.Masters).Error; err != nil {
		return in, fmt.Errorf("calendar: load masters: %w", err)
	}

	var moved []models.EventException
	if err := db.Model(&models.EventException{}).
		Select("event_exceptions.*").
		Joins("JOIN event_masters ON event_masters.id = event_exceptions.event_master_id").
		Where("event_masters.team_id IN ? AND event_exceptions.new_date >= ? AND event_exceptions.new_date <= ?", teamIDs, start, end).
		Find(&moved).Error; err != nil {
		return in, fmt.Errorf("calendar: load moved exceptions: %w", err)
	}

	loaded := make(map[string]bool, len(in.Masters))
	for _, m := range in.Masters {
		loaded[m.ID] = true
	}
	var extra []string
	for _, ex := range moved {
		if !loaded[ex.EventMasterID] {
			loaded[ex.EventMasterID] = true
			extra = append(extra, ex.EventMasterID)
		}
	}
	if len(extra) > 0 {
		var more []models.EventMaster
		if err := db.Where("id IN ?", extra).Order("date_start, id").Find(&more).Error; err != nil {
			return in, fmt.Errorf("calendar: load masters: %w", err)
		}
		in.Masters = append(in.Masters, more...)
	}
	if len(in.Masters) == 0 {
		return in, nil
	}

	ids := make([]string, 0, len(in.Masters))
	for _, m := range in.Masters {
		ids = append(ids, m.ID)
	}

	// Overrides match occurrences by UTC day, so widen to whole days.
	dayFrom := recurrence.DayStart(start)
	dayTo := recurrence.DayStart(end).Add(24 * time.Hour)

	if err := db.Where("event_master_id IN ? AND ((original_date >= ? AND original_date < ?) OR (new_date >= ? AND new_date <= ?))",
		ids, dayFrom, dayTo, start, end).
		Order("new_date, id").Find(&in.Exceptions).Error; err != nil {
		return in, fmt.Errorf("calendar: load exceptions: %w", err)
	}
	if err := db.Where("event_master_id IN ? AND original_date >= ? AND original_date < ?", ids, dayFrom, dayTo).
		Find(&in.Cancellations).Error; err != nil {
		return in, fmt.Errorf("calendar: load cancellations: %w", err)
	}

	for _, m := range in.Masters {
		rule, err := recurrence.Parse(m.RRule)
		if err != nil {
			return in, fmt.Errorf("calendar: master %s: %w", m.ID, err)
		}
		occ, err := recurrence.Between(rule, m.DateStart, start, end)
		if err != nil {
			return in, fmt.Errorf("calendar: expand master %s: %w", m.ID, err)
		}
		in.Occurrences[m.ID] = occ
	}
	return in, nil
}
