package models

import "time"

// EventKind classifies a recurring event and the care tasks derived from it.
type EventKind string

const (
	KindNormal   EventKind = "normal"
	KindCritical EventKind = "critical"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	return k == KindNormal || k == KindCritical
}

// EventMaster is a recurring-event definition. RRule holds the RFC 5545
// rule body without DTSTART; DateStart is the series anchor and DateUntil,
// when set, is the last instant the rule may emit.
type EventMaster struct {
	ID          string     `gorm:"primaryKey;size:36"`
	TeamID      string     `gorm:"size:64;not null;index"`
	Title       string     `gorm:"size:256;not null"`
	Description string     `gorm:"type:text"`
	Kind        EventKind  `gorm:"size:16;default:normal;index"`
	RRule       string     `gorm:"column:rrule;size:512;not null"`
	DateStart   time.Time  `gorm:"not null;index"`
	DateUntil   *time.Time `gorm:"index"`
	CreatedBy   string     `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Exceptions    []EventException    `gorm:"foreignKey:EventMasterID;constraint:OnDelete:CASCADE"`
	Cancellations []EventCancellation `gorm:"foreignKey:EventMasterID;constraint:OnDelete:CASCADE"`
}

// EventException overrides a single occurrence of a master. OriginalDate is
// the occurrence it replaces and never changes once written.
type EventException struct {
	ID            string              `gorm:"primaryKey;size:36"`
	EventMasterID string              `gorm:"size:36;not null;uniqueIndex:ux_exception_master_original,priority:1"`
	OriginalDate  time.Time           `gorm:"not null;uniqueIndex:ux_exception_master_original,priority:2"`
	NewDate       time.Time           `gorm:"not null;index"`
	Title         Override[string]    `gorm:"size:256"`
	Description   Override[string]    `gorm:"type:text"`
	Kind          Override[EventKind] `gorm:"size:16"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventCancellation suppresses one occurrence of a master with no replacement.
type EventCancellation struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	EventMasterID string    `gorm:"size:36;not null;uniqueIndex:ux_cancellation_master_original,priority:1"`
	OriginalDate  time.Time `gorm:"not null;uniqueIndex:ux_cancellation_master_original,priority:2"`
	CreatedAt     time.Time
}
