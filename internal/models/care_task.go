package models

import "time"

// CareTask is a persisted, completion-tracked task. EventMasterID is nil for
// tasks created by hand. DoneByUserID is nil exactly when DoneAt is nil.
type CareTask struct {
	ID            string     `gorm:"primaryKey;size:36"`
	TeamID        string     `gorm:"size:64;not null;uniqueIndex:ux_care_task_team_master_date,priority:1"`
	EventMasterID *string    `gorm:"size:36;uniqueIndex:ux_care_task_team_master_date,priority:2"`
	Date          time.Time  `gorm:"not null;uniqueIndex:ux_care_task_team_master_date,priority:3;index"`
	Title         string     `gorm:"size:256;not null"`
	Description   string     `gorm:"type:text"`
	Kind          EventKind  `gorm:"size:16;default:normal;index"`
	DoneAt        *time.Time `gorm:"index"`
	DoneByUserID  *string    `gorm:"size:64"`
	Details       string     `gorm:"type:text"`
	CreatedBy     string     `gorm:"size:64"`
	ShiftID       *string    `gorm:"size:36;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsDone reports whether the task has been completed.
func (t *CareTask) IsDone() bool {
	return t.DoneAt != nil
}
