package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medicine is reference data shared by all users. It is seeded once
// from the catalogue file and read-only afterwards.
type Medicine struct {
	ID                uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	Name              string    `gorm:"size:100;not null" json:"name"`
	GenericName       string    `gorm:"size:100" json:"generic_name"`
	Indications       string    `gorm:"type:text" json:"indications"`
	Dosage            string    `gorm:"type:text" json:"dosage"`
	Contraindications string    `gorm:"type:text" json:"contraindications"`
	SideEffects       string    `gorm:"type:text" json:"side_effects"`
	Precautions       string    `gorm:"type:text" json:"precautions"`
}

func (m *Medicine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
