package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cnm4us/aws-sub000/internal/observ"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;size:255"`
	AppliedAt time.Time
}

// RunMigrations applies every *.sql file in dir that has not been recorded
// yet, in file name order. A missing dir is not an error.
func RunMigrations(db *gorm.DB, dir string, logger *zap.Logger) error {
	logger = observ.OrNop(logger)
	if err := db.AutoMigrate(&Migration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		version := filepath.Base(file)

		var count int64
		if err := db.Model(&Migration{}).Where("version = ?", version).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if count > 0 {
			logger.Debug("migration already applied", zap.String("version", version))
			continue
		}

		sqlContent, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", version, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(sqlContent)).Error; err != nil {
				return err
			}
			return tx.Create(&Migration{Version: version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", version, err)
		}

		logger.Info("migration applied", zap.String("version", version))
	}

	return nil
}

func GetAppliedMigrations(db *gorm.DB) ([]Migration, error) {
	var migrations []Migration
	if err := db.Order("applied_at DESC").Find(&migrations).Error; err != nil {
		return nil, err
	}
	return migrations, nil
}
