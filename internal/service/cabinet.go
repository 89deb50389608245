package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediguide/backend/internal/models"
)

var ErrAlreadyInCabinet = errors.New("medicine already in cabinet")

// CabinetService manages a user's personal medicine cabinet and the
// dosing schedules attached to its entries.
type CabinetService struct {
	db *gorm.DB
}

func NewCabinetService(db *gorm.DB) *CabinetService {
	return &CabinetService{db: db}
}

// ListMedicines returns the full reference catalogue.
func (s *CabinetService) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	var medicines []models.Medicine
	if err := s.db.WithContext(ctx).Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}

// GetMedicine retrieves one catalogue record by id.
func (s *CabinetService) GetMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	var medicine models.Medicine
	if err := s.db.WithContext(ctx).First(&medicine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

// AddToCabinet links a medicine to the user's cabinet. Adding the same
// medicine twice is rejected by a lookup before insert.
func (s *CabinetService) AddToCabinet(ctx context.Context, userID, medicineID uuid.UUID) (*models.CabinetEntry, error) {
	if _, err := s.GetMedicine(ctx, medicineID); err != nil {
		return nil, err
	}

	var existing models.CabinetEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND medicine_id = ?", userID, medicineID).
		First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyInCabinet
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := models.CabinetEntry{
		UserID:     userID,
		MedicineID: medicineID,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListCabinet returns the user's entries with their medicine and
// schedules preloaded, in insertion order.
func (s *CabinetService) ListCabinet(ctx context.Context, userID uuid.UUID) ([]models.CabinetEntry, error) {
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
	return entries, nil
}

// RemoveFromCabinet deletes the user's own entry and cascades to its
// schedules and their intake logs.
func (s *CabinetService) RemoveFromCabinet(ctx context.Context, userID, entryID uuid.UUID) error {
	var entry models.CabinetEntry
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		First(&entry).Error
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scheduleIDs []uuid.UUID
		if err := tx.Model(&models.Schedule{}).
			Where("cabinet_entry_id = ?", entry.ID).
			Pluck("id", &scheduleIDs).Error; err != nil {
			return err
		}
		if len(scheduleIDs) > 0 {
			if err := tx.Where("schedule_id IN ?", scheduleIDs).
				Delete(&models.IntakeLog{}).Error; err != nil {
				return err
			}
			if err := tx.Where("cabinet_entry_id = ?", entry.ID).
				Delete(&models.Schedule{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&entry).Error
	})
}

// AddSchedule creates a dosing schedule under one of the caller's own
// cabinet entries. Dates are stored as given; the data layer does not
// validate start <= end.
func (s *CabinetService) AddSchedule(ctx context.Context, userID, entryID uuid.UUID, startDate, endDate, timeOfDay, dose string) (*models.Schedule, error) {
	var entry models.CabinetEntry
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}

	schedule := models.Schedule{
		CabinetEntryID: entry.ID,
		StartDate:      startDate,
		EndDate:        endDate,
		TimeOfDay:      timeOfDay,
		Dose:           dose,
		Status:         models.ScheduleStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}
