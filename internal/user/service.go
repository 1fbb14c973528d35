package user

import (
	"errors"
	"fmt"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/utils"
	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already registered")

func CreateUser(db *gorm.DB, name, email, password string) (*models.User, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Status:   "active",
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func GetUser(db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	err := db.First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func ListUsers(db *gorm.DB) ([]models.User, error) {
	users := make([]models.User, 0)
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
