package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediguide/backend/internal/models"
)

// newTestDB opens an in-memory sqlite database with the application
// schema. The pool is pinned to one connection so every query sees
// the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Medicine{},
		&models.CabinetEntry{},
		&models.Schedule{},
		&models.IntakeLog{},
	))
	return db
}

type fixture struct {
	user     models.User
	medicine models.Medicine
	entry    models.CabinetEntry
}

func createCabinetFixture(t *testing.T, db *gorm.DB, medicineName string) fixture {
	user := models.User{Nickname: "user-" + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&user).Error)

	medicine := models.Medicine{Name: medicineName}
	require.NoError(t, db.Create(&medicine).Error)

	entry := models.CabinetEntry{UserID: user.ID, MedicineID: medicine.ID}
	require.NoError(t, db.Create(&entry).Error)

	return fixture{user: user, medicine: medicine, entry: entry}
}

func createSchedule(t *testing.T, db *gorm.DB, entryID uuid.UUID, start, end, times, status string) models.Schedule {
	sch := models.Schedule{
		CabinetEntryID: entryID,
		StartDate:      start,
		EndDate:        end,
		TimeOfDay:      times,
		Dose:           "1片",
		Status:         status,
	}
	require.NoError(t, db.Create(&sch).Error)
	return sch
}

func TestParseTimes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "ascii commas",
			input:    "08:00,12:00",
			expected: []string{"08:00", "12:00"},
		},
		{
			name:     "full-width commas",
			input:    "08:00，12:00，18:00",
			expected: []string{"08:00", "12:00", "18:00"},
		},
		{
			name:     "mixed separators with whitespace",
			input:    " 08:00 , 12:00， 18:00 ",
			expected: []string{"08:00", "12:00", "18:00"},
		},
		{
			name:     "single entry",
			input:    "睡前",
			expected: []string{"睡前"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseTimes(tt.input))
		})
	}
}

func TestTasksForDateIncludesActiveInRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	fx := createCabinetFixture(t, db, "布洛芬缓释胶囊")
	sch := createSchedule(t, db, fx.entry.ID, "2024-03-01", "2024-03-10", "08:00,20:00", models.ScheduleStatusActive)

	for _, date := range []string{"2024-03-01", "2024-03-05", "2024-03-10"} {
		tasks, err := svc.TasksForDate(context.Background(), fx.user.ID, date)
		require.NoError(t, err)
		require.Len(t, tasks, 1, "date %s", date)

		task := tasks[0]
		assert.Equal(t, "布洛芬缓释胶囊", task.MedicineName)
		assert.Equal(t, sch.ID, task.ScheduleID)
		assert.Equal(t, []string{"08:00", "20:00"}, task.Times)
		assert.Equal(t, 2, task.TotalCount)
		assert.Equal(t, 0, task.TakenCount)
		assert.Equal(t, TaskStatusPending, task.Status)
	}
}

func TestTasksForDateFullWidthCommaCount(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	fx := createCabinetFixture(t, db, "阿莫西林胶囊")
	createSchedule(t, db, fx.entry.ID, "2024-03-01", "2024-03-10", "08:00，12:00，18:00", models.ScheduleStatusActive)

	tasks, err := svc.TasksForDate(context.Background(), fx.user.ID, "2024-03-02")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 3, tasks[0].TotalCount)
}

func TestTasksForDateExclusions(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	fx := createCabinetFixture(t, db, "对乙酰氨基酚片")
	active := createSchedule(t, db, fx.entry.ID, "2024-03-01", "2024-03-10", "08:00", models.ScheduleStatusActive)
	createSchedule(t, db, fx.entry.ID, "2024-03-01", "2024-03-10", "08:00", models.ScheduleStatusCompleted)

	t.Run("date before range", func(t *testing.T) {
		tasks, err := svc.TasksForDate(context.Background(), fx.user.ID, "2024-02-29")
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("date after range", func(t *testing.T) {
		tasks, err := svc.TasksForDate(context.Background(), fx.user.ID, "2024-03-11")
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("completed schedule excluded in range", func(t *testing.T) {
		tasks, err := svc.TasksForDate(context.Background(), fx.user.ID, "2024-03-05")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, active.ID, tasks[0].ScheduleID)
	})
}

func TestTasksForDateUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)

	tasks, err := svc.TasksForDate(context.Background(), uuid.New(), "2024-03-05")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTasksForDateReadIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	fx := createCabinetFixture(t, db, "氯雷他定片")
	createSchedule(t, db, fx.entry.ID, "2024-03-01", "2024-03-10", "08:00,20:00", models.ScheduleStatusActive)

	first, err := svc.TasksForDate(context.Background(), fx.user.ID, "2024-03-05")
	require.NoError(t, err)
	second, err := svc.TasksForDate(context.Background(), fx.user.ID, "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMarkTakenMonotonicCompletion(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	fx := createCabinetFixture(t, db, "维生素C片")

	today := time.Now().Format(models.DateFormat)
	sch := createSchedule(t, db, fx.entry.ID, today, today, "08:00,20:00", models.ScheduleStatusActive)

	ctx := context.Background()

	expectTask := func(takenCount int, status string) {
		tasks, err := svc.TasksForDate(ctx, fx.user.ID, today)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, takenCount, tasks[0].TakenCount)
		assert.Equal(t, 2, tasks[0].TotalCount)
		assert.Equal(t, status, tasks[0].Status)
	}

	expectTask(0, TaskStatusPending)

	log, err := svc.MarkTaken(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, today, log.DateStr)
	expectTask(1, TaskStatusPending)

	_, err = svc.MarkTaken(ctx, sch.ID)
	require.NoError(t, err)
	expectTask(2, TaskStatusCompleted)

	// Over-marking keeps accumulating; the status stays capped.
	_, err = svc.MarkTaken(ctx, sch.ID)
	require.NoError(t, err)
	expectTask(3, TaskStatusCompleted)
}

func TestMarkTakenConcurrentAppends(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	fx := createCabinetFixture(t, db, "感冒灵颗粒")

	today := time.Now().Format(models.DateFormat)
	sch := createSchedule(t, db, fx.entry.ID, today, today, "08:00,20:00", models.ScheduleStatusActive)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.MarkTaken(context.Background(), sch.ID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var count int64
	require.NoError(t, db.Model(&models.IntakeLog{}).
		Where("schedule_id = ? AND date_str = ?", sch.ID, today).
		Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestTasksForDateOrderFollowsInsertion(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)

	user := models.User{Nickname: "order-user"}
	require.NoError(t, db.Create(&user).Error)

	names := []string{"阿司匹林肠溶片", "布洛芬缓释胶囊", "氯雷他定片"}
	for i, name := range names {
		medicine := models.Medicine{Name: name}
		require.NoError(t, db.Create(&medicine).Error)
		entry := models.CabinetEntry{
			UserID:     user.ID,
			MedicineID: medicine.ID,
			AddedAt:    time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&entry).Error)
		createSchedule(t, db, entry.ID, "2024-03-01", "2024-03-10", "08:00", models.ScheduleStatusActive)
	}

	tasks, err := svc.TasksForDate(context.Background(), user.ID, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, name := range names {
		assert.Equal(t, name, tasks[i].MedicineName)
	}
}
