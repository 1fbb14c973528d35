package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is not active")
)

// LoginUser checks an email/password pair and returns a signed access token.
func LoginUser(ctx context.Context, db *gorm.DB, email, password string) (string, *models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return "", nil, ErrInvalidCredentials
	}
	if user.Status != "" && user.Status != "active" {
		return "", nil, ErrUserInactive
	}

	token, err := utils.GenerateJWT(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return token, &user, nil
}
