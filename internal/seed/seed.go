package seed

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mediguide/backend/internal/models"
)

var blockSplit = regexp.MustCompile(`\n\d+\.\n`)

// fieldLabels in the catalogue file, in the order they map onto a
// Medicine record.
var fieldPatterns = map[string]*regexp.Regexp{
	"name":              regexp.MustCompile(`全称：(.+)`),
	"generic_name":      regexp.MustCompile(`简称：(.+)`),
	"indications":       regexp.MustCompile(`适应症：(.+)`),
	"dosage":            regexp.MustCompile(`用法用量：(.+)`),
	"contraindications": regexp.MustCompile(`禁忌症：(.+)`),
	"side_effects":      regexp.MustCompile(`副作用：(.+)`),
	"precautions":       regexp.MustCompile(`注意事项：(.+)`),
}

func field(name, block string) string {
	if m := fieldPatterns[name].FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ParseMedicines parses the numbered catalogue file: records are
// separated by a line holding only "<number>." and carry labeled
// fields (全称, 简称, 适应症, ...). Blocks without a 全称 line, such as
// category headings, are skipped.
func ParseMedicines(content string) []models.Medicine {
	blocks := blockSplit.Split(content, -1)

	var medicines []models.Medicine
	for _, block := range blocks {
		name := field("name", block)
		if name == "" {
			continue
		}
		medicines = append(medicines, models.Medicine{
			Name:              name,
			GenericName:       field("generic_name", block),
			Indications:       field("indications", block),
			Dosage:            field("dosage", block),
			Contraindications: field("contraindications", block),
			SideEffects:       field("side_effects", block),
			Precautions:       field("precautions", block),
		})
	}
	return medicines
}

// Medicines seeds the catalogue from the given file when the table is
// empty. A missing file is a warning, not an error, so a fresh
// checkout without data still starts.
func Medicines(db *gorm.DB, path string, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.Medicine{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Warn("medicine catalogue file not found, skipping seed", zap.String("path", path))
		return nil
	}

	medicines := ParseMedicines(string(content))
	if len(medicines) == 0 {
		log.Warn("medicine catalogue file yielded no records", zap.String("path", path))
		return nil
	}

	if err := db.Create(&medicines).Error; err != nil {
		return fmt.Errorf("failed to seed medicines: %w", err)
	}
	log.Info("seeded medicines", zap.Int("count", len(medicines)))
	return nil
}

// Reseed wipes the catalogue and re-imports it from the given file.
// Used by the seed CLI; the running application never calls this.
func Reseed(db *gorm.DB, path string, log *zap.Logger) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalogue file: %w", err)
	}

	medicines := ParseMedicines(string(content))
	if len(medicines) == 0 {
		return 0, fmt.Errorf("no medicine records parsed from %s", path)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Medicine{}).Error; err != nil {
			return err
		}
		return tx.Create(&medicines).Error
	})
	if err != nil {
		return 0, err
	}

	log.Info("reseeded medicines", zap.Int("count", len(medicines)))
	return len(medicines), nil
}
