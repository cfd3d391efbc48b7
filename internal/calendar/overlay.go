// Package calendar projects recurring events, their exceptions and their
// cancellations into a flat, time-ordered list of virtual events.
package calendar

import (
	"sort"
	"time"

	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
)

// VirtualEvent is one computed occurrence. It is never persisted.
type VirtualEvent struct {
	EventMasterID string           `json:"eventMasterId"`
	ExceptionID   *string          `json:"exceptionId,omitempty"`
	Date          time.Time        `json:"date"`
	OriginalDate  *time.Time       `json:"originalDate,omitempty"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Kind          models.EventKind `json:"kind"`
	TeamID        string           `json:"teamId"`
	CreatedBy     string           `json:"createdBy"`
}

// Key identifies the occurrence slot the event fills: its master and the
// UTC day of the occurrence it came from.
func (e VirtualEvent) Key() string {
	orig := e.Date
	if e.OriginalDate != nil {
		orig = *e.OriginalDate
	}
	return slotKey(e.EventMasterID, orig)
}

// OverlayInput carries expanded master occurrences and the overrides that
// apply to them. Occurrences is keyed by master id.
type OverlayInput struct {
	Masters       []models.EventMaster
	Occurrences   map[string][]time.Time
	Exceptions    []models.EventException
	Cancellations []models.EventCancellation
	Start         time.Time
	End           time.Time
}

func slotKey(masterID string, t time.Time) string {
	return masterID + "|" + recurrence.DayKey(t)
}

// Overlay merges master occurrences with exceptions and cancellations.
// A master occurrence is dropped when an exception or cancellation for the
// same master falls on the same UTC day. An exception is listed only when
// its new date is inside [Start, End]. At most one event survives per
// (master, original day).
func Overlay(in OverlayInput) []VirtualEvent {
	masters := make(map[string]*models.EventMaster, len(in.Masters))
	for i := range in.Masters {
		masters[in.Masters[i].ID] = &in.Masters[i]
	}

	cancelled := make(map[string]bool, len(in.Cancellations))
	for _, c := range in.Cancellations {
		cancelled[slotKey(c.EventMasterID, c.OriginalDate)] = true
	}
	excepted := make(map[string]bool, len(in.Exceptions))
	for _, ex := range in.Exceptions {
		excepted[slotKey(ex.EventMasterID, ex.OriginalDate)] = true
	}

	seen := make(map[string]bool)
	var out []VirtualEvent

	for i := range in.Masters {
		m := &in.Masters[i]
		for _, occ := range in.Occurrences[m.ID] {
			key := slotKey(m.ID, occ)
			if cancelled[key] || excepted[key] || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, fromMaster(m, occ))
		}
	}

	for i := range in.Exceptions {
		ex := &in.Exceptions[i]
		m, ok := masters[ex.EventMasterID]
		if !ok {
			continue
		}
		if ex.NewDate.Before(in.Start) || ex.NewDate.After(in.End) {
			continue
		}
		key := slotKey(ex.EventMasterID, ex.OriginalDate)
		if cancelled[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, fromException(m, ex))
	}

	Sort(out)
	return out
}

// Sort orders events by date, then master id.
func Sort(events []VirtualEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].EventMasterID < events[j].EventMasterID
	})
}

func fromMaster(m *models.EventMaster, occ time.Time) VirtualEvent {
	return VirtualEvent{
		EventMasterID: m.ID,
		Date:          occ,
		Title:         m.Title,
		Description:   m.Description,
		Kind:          m.Kind,
		TeamID:        m.TeamID,
		CreatedBy:     m.CreatedBy,
	}
}

func fromException(m *models.EventMaster, ex *models.EventException) VirtualEvent {
	id := ex.ID
	orig := recurrence.Normalize(ex.OriginalDate)
	return VirtualEvent{
		EventMasterID: m.ID,
		ExceptionID:   &id,
		Date:          recurrence.Normalize(ex.NewDate),
		OriginalDate:  &orig,
		Title:         ex.Title.Resolve(m.Title),
		Description:   ex.Description.Resolve(m.Description),
		Kind:          ex.Kind.Resolve(m.Kind),
		TeamID:        m.TeamID,
		CreatedBy:     m.CreatedBy,
	}
}
