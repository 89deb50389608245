package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediguide/backend/internal/models"
)

// Task is one dashboard line: a schedule that is active on the target
// date, with its per-day completion state.
type Task struct {
	MedicineName string    `json:"medicine_name"`
	Dose         string    `json:"dose"`
	Times        []string  `json:"times"`
	ScheduleID   uuid.UUID `json:"schedule_id"`
	Status       string    `json:"status"`
	TakenCount   int       `json:"taken_count"`
	TotalCount   int       `json:"total_count"`
}

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// TaskService derives daily medication tasks from schedules and intake
// logs, and records taken doses.
type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// ParseTimes splits a schedule's time-of-day field into its entries.
// Both the ASCII comma and the full-width comma separate entries, and
// each entry is trimmed.
func ParseTimes(timeOfDay string) []string {
	normalized := strings.ReplaceAll(timeOfDay, "，", ",")
	parts := strings.Split(normalized, ",")
	times := make([]string, len(parts))
	for i, p := range parts {
		times[i] = strings.TrimSpace(p)
	}
	return times
}

// TasksForDate returns the user's medication tasks for the given
// calendar date. Pure read: an unknown user yields an empty list.
// Task order follows cabinet-entry then schedule insertion order; it
// is not sorted by time of day.
func (s *TaskService) TasksForDate(ctx context.Context, userID uuid.UUID, date string) ([]Task, error) {
	var entries []models.CabinetEntry
	err := s.db.WithContext(ctx).
		Preload("Medicine").
		Preload("Schedules").
		Where("user_id = ?", userID).
		Order("added_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	tasks := []Task{}
	for _, entry := range entries {
		for _, sch := range entry.Schedules {
			// Fixed-width ISO dates make the range check a plain
			// string comparison.
			if sch.Status != models.ScheduleStatusActive {
				continue
			}
			if date < sch.StartDate || date > sch.EndDate {
				continue
			}

			var takenCount int64
			err := s.db.WithContext(ctx).Model(&models.IntakeLog{}).
				Where("schedule_id = ? AND date_str = ?", sch.ID, date).
				Count(&takenCount).Error
			if err != nil {
				return nil, err
			}

			times := ParseTimes(sch.TimeOfDay)
			status := TaskStatusPending
			if int(takenCount) >= len(times) {
				status = TaskStatusCompleted
			}

			tasks = append(tasks, Task{
				MedicineName: entry.Medicine.Name,
				Dose:         sch.Dose,
				Times:        times,
				ScheduleID:   sch.ID,
				Status:       status,
				TakenCount:   int(takenCount),
				TotalCount:   len(times),
			})
		}
	}

	return tasks, nil
}

// TasksForToday is TasksForDate for the current calendar date.
func (s *TaskService) TasksForToday(ctx context.Context, userID uuid.UUID) ([]Task, string, error) {
	today := time.Now().Format(models.DateFormat)
	tasks, err := s.TasksForDate(ctx, userID, today)
	return tasks, today, err
}

// MarkTaken appends one intake log for the schedule, dated today.
// Strictly append-only: repeated marks keep accumulating and the
// dashboard status simply caps at completed. The schedule is not
// checked against the caller's cabinet.
func (s *TaskService) MarkTaken(ctx context.Context, scheduleID uuid.UUID) (*models.IntakeLog, error) {
	now := time.Now()
	log := models.IntakeLog{
		ScheduleID: scheduleID,
		TakenAt:    now,
		DateStr:    now.Format(models.DateFormat),
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}
