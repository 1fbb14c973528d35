package database

import (
	"fmt"

	"github.com/cnm4us/aws-sub000/internal/config"
	"github.com/cnm4us/aws-sub000/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return db, nil
}

// Models lists every table owned by this service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.UserSpaceRole{},
		&models.Space{},
		&models.SiteSettings{},
		&models.Suspension{},
		&models.Upload{},
		&models.Production{},
		&models.Publication{},
		&models.PublicationEvent{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
