package models

import "time"

// Shift is an operational period worked by one caregiver for a team.
type Shift struct {
	ID           string     `gorm:"primaryKey;size:36"`
	TeamID       string     `gorm:"size:64;not null;index"`
	CaregiverID  string     `gorm:"size:64;not null"`
	CheckedInAt  time.Time  `gorm:"not null"`
	CheckedOutAt *time.Time `gorm:"index"`
}

// Active reports whether the shift has not been checked out.
func (s *Shift) Active() bool {
	return s.CheckedOutAt == nil
}
