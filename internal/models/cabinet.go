package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule statuses. Nothing transitions a schedule to completed
// automatically; the dashboard simply stops listing it once its date
// range has passed.
const (
	ScheduleStatusActive    = "active"
	ScheduleStatusCompleted = "completed"
)

// DateFormat is the fixed-width layout for all calendar-date columns.
// Keeping dates as YYYY-MM-DD strings makes range checks plain
// lexicographic comparisons.
const DateFormat = "2006-01-02"

// CabinetEntry links a user to one medicine in their personal cabinet.
// Duplicate adds are prevented by a lookup before insert, not by a
// database constraint.
type CabinetEntry struct {
	ID         uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:varchar(36);index;not null" json:"user_id"`
	MedicineID uuid.UUID  `gorm:"type:varchar(36);not null" json:"medicine_id"`
	AddedAt    time.Time  `gorm:"autoCreateTime" json:"added_at"`
	Medicine   Medicine   `json:"medicine"`
	Schedules  []Schedule `gorm:"constraint:OnDelete:CASCADE" json:"schedules"`
}

func (e *CabinetEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Schedule is a dosing plan for one cabinet entry over an inclusive
// date range. TimeOfDay is free text, comma separated; both the ASCII
// comma and the full-width comma are accepted as separators.
type Schedule struct {
	ID             uuid.UUID   `gorm:"type:varchar(36);primarykey" json:"id"`
	CabinetEntryID uuid.UUID   `gorm:"type:varchar(36);index;not null" json:"cabinet_entry_id"`
	StartDate      string      `gorm:"size:10;not null" json:"start_date"`
	EndDate        string      `gorm:"size:10;not null" json:"end_date"`
	TimeOfDay      string      `gorm:"size:200;not null" json:"time_of_day"`
	Dose           string      `gorm:"size:50;not null" json:"dose"`
	Status         string      `gorm:"size:20;default:'active'" json:"status"`
	IntakeLogs     []IntakeLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = ScheduleStatusActive
	}
	return nil
}

// IntakeLog records one taken dose. DateStr duplicates the calendar
// date of TakenAt so same-day aggregation is a string equality check.
// Rows are append-only.
type IntakeLog struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	ScheduleID uuid.UUID `gorm:"type:varchar(36);index;not null" json:"schedule_id"`
	TakenAt    time.Time `gorm:"autoCreateTime" json:"taken_at"`
	DateStr    string    `gorm:"size:10;index;not null" json:"date_str"`
}

func (l *IntakeLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
