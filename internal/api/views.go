package api

import (
	"time"

	"github.com/zulandar/carecal/internal/activity"
	"github.com/zulandar/carecal/internal/calendar"
	"github.com/zulandar/carecal/internal/caretask"
	"github.com/zulandar/carecal/internal/models"
)

type seriesView struct {
	ID            string          `json:"id"`
	TeamID        string          `json:"teamId"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Kind          string          `json:"kind"`
	RRule         string          `json:"rrule"`
	DateStart     time.Time       `json:"dateStart"`
	DateUntil     *time.Time      `json:"dateUntil,omitempty"`
	CreatedBy     string          `json:"createdBy"`
	Exceptions    []exceptionView `json:"exceptions,omitempty"`
	Cancellations []time.Time     `json:"cancellations,omitempty"`
}

type exceptionView struct {
	ID           string    `json:"id"`
	OriginalDate time.Time `json:"originalDate"`
	NewDate      time.Time `json:"newDate"`
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Kind         *string   `json:"kind,omitempty"`
}

type taskView struct {
	ID            string     `json:"id,omitempty"`
	TeamID        string     `json:"teamId"`
	EventMasterID *string    `json:"eventMasterId,omitempty"`
	Date          time.Time  `json:"date"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Kind          string     `json:"kind"`
	Virtual       bool       `json:"virtual"`
	DoneAt        *time.Time `json:"doneAt,omitempty"`
	DoneByUserID  *string    `json:"doneByUserId,omitempty"`
	Details       string     `json:"details,omitempty"`
	ShiftID       *string    `json:"shiftId,omitempty"`
}

type shiftView struct {
	ID           string     `json:"id"`
	TeamID       string     `json:"teamId"`
	CaregiverID  string     `json:"caregiverId"`
	CheckedInAt  time.Time  `json:"checkedInAt"`
	CheckedOutAt *time.Time `json:"checkedOutAt,omitempty"`
}

type resultView struct {
	TeamID   string     `json:"teamId"`
	Inserted int        `json:"inserted"`
	Cursor   *time.Time `json:"cursor,omitempty"`
}

type activityView struct {
	ID        uint                       `json:"id"`
	UserID    string                     `json:"userId"`
	CreatedAt time.Time                  `json:"createdAt"`
	Diff      map[string]activity.Change `json:"diff"`
}

func newSeriesView(m *models.EventMaster) seriesView {
	v := seriesView{
		ID:          m.ID,
		TeamID:      m.TeamID,
		Title:       m.Title,
		Description: m.Description,
		Kind:        string(m.Kind),
		RRule:       m.RRule,
		DateStart:   m.DateStart,
		DateUntil:   m.DateUntil,
		CreatedBy:   m.CreatedBy,
	}
	for _, ex := range m.Exceptions {
		v.Exceptions = append(v.Exceptions, exceptionView{
			ID:           ex.ID,
			OriginalDate: ex.OriginalDate,
			NewDate:      ex.NewDate,
			Title:        overridePtr(ex.Title),
			Description:  overridePtr(ex.Description),
			Kind:         overridePtr(ex.Kind),
		})
	}
	for _, c := range m.Cancellations {
		v.Cancellations = append(v.Cancellations, c.OriginalDate)
	}
	return v
}

func overridePtr[T ~string](o models.Override[T]) *string {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	s := string(v)
	return &s
}

func newTaskView(t *models.CareTask) taskView {
	return taskView{
		ID:            t.ID,
		TeamID:        t.TeamID,
		EventMasterID: t.EventMasterID,
		Date:          t.Date,
		Title:         t.Title,
		Description:   t.Description,
		Kind:          string(t.Kind),
		DoneAt:        t.DoneAt,
		DoneByUserID:  t.DoneByUserID,
		Details:       t.Details,
		ShiftID:       t.ShiftID,
	}
}

func newVirtualTaskView(e *calendar.VirtualEvent) taskView {
	master := e.EventMasterID
	return taskView{
		TeamID:        e.TeamID,
		EventMasterID: &master,
		Date:          e.Date,
		Title:         e.Title,
		Description:   e.Description,
		Kind:          string(e.Kind),
		Virtual:       true,
	}
}

func newEntryView(e caretask.Entry) taskView {
	if e.Task != nil {
		return newTaskView(e.Task)
	}
	return newVirtualTaskView(e.Virtual)
}

func newShiftView(s *models.Shift) shiftView {
	return shiftView{
		ID:           s.ID,
		TeamID:       s.TeamID,
		CaregiverID:  s.CaregiverID,
		CheckedInAt:  s.CheckedInAt,
		CheckedOutAt: s.CheckedOutAt,
	}
}

func newResultView(r *caretask.Result) resultView {
	return resultView{TeamID: r.TeamID, Inserted: r.Inserted, Cursor: r.Cursor}
}
