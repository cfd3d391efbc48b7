package caretask

import (
	"fmt"
	"sort"
	"time"

	"github.com/zulandar/carecal/internal/calendar"
	"github.com/zulandar/carecal/internal/errs"
	"github.com/zulandar/carecal/internal/models"
	"github.com/zulandar/carecal/internal/recurrence"
	"github.com/zulandar/carecal/internal/teamconfig"
	"gorm.io/gorm"
)

// ListOpts selects care tasks for List.
type ListOpts struct {
	TeamIDs      []string
	Start        time.Time
	End          time.Time
	OnlyCritical bool
	OnlyNotDone  bool
}

// Entry is either a persisted task or a projected event that has not been
// materialized yet. Exactly one of Task and Virtual is set.
type Entry struct {
	Task    *models.CareTask       `json:"task,omitempty"`
	Virtual *calendar.VirtualEvent `json:"virtual,omitempty"`
}

// Date returns the entry's effective date.
func (e Entry) Date() time.Time {
	if e.Task != nil {
		return e.Task.Date
	}
	return e.Virtual.Date
}

// TeamID returns the team the entry belongs to.
func (e Entry) TeamID() string {
	if e.Task != nil {
		return e.Task.TeamID
	}
	return e.Virtual.TeamID
}

// List returns persisted tasks in [Start, End] and, unless OnlyNotDone is
// set, the projected events of each team that fall strictly after that
// team's cursor. Entries are ordered by date; at most one entry is
// returned per (master, date).
func List(db *gorm.DB, opts ListOpts) ([]Entry, error) {
	if len(opts.TeamIDs) == 0 {
		return nil, fmt.Errorf("caretask: list: %w", errs.Invalid("at least one team id is required"))
	}
	start, end := recurrence.Normalize(opts.Start), recurrence.Normalize(opts.End)
	if end.Before(start) {
		return nil, fmt.Errorf("caretask: list: %w", errs.Invalid("window end is before start"))
	}

	q := db.Where("team_id IN ? AND date >= ? AND date <= ?", opts.TeamIDs, start, end)
	if opts.OnlyCritical {
		q = q.Where("kind = ?", models.KindCritical)
	}
	if opts.OnlyNotDone {
		q = q.Where("done_at IS NULL")
	}
	var tasks []models.CareTask
	if err := q.Order("date, id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("caretask: list: %w", err)
	}

	entries := make([]Entry, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.EventMasterID != nil {
			seen[taskKey(*t.EventMasterID, t.Date)] = true
		}
		entries = append(entries, Entry{Task: t})
	}

	if !opts.OnlyNotDone {
		cursors, err := teamconfig.Cursors(db, opts.TeamIDs)
		if err != nil {
			return nil, fmt.Errorf("caretask: list: %w", err)
		}
		events, err := calendar.Project(db, opts.TeamIDs, start, end, opts.OnlyCritical)
		if err != nil {
			return nil, fmt.Errorf("caretask: list: %w", err)
		}
		for i := range events {
			e := &events[i]
			if cursor, ok := cursors[e.TeamID]; ok && !e.Date.After(cursor) {
				continue
			}
			key := taskKey(e.EventMasterID, e.Date)
			if seen[key] {
				continue
			}
			seen[key] = true
			entries = append(entries, Entry{Virtual: e})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date().Before(entries[j].Date())
	})
	return entries, nil
}
