package role

import (
	"errors"
	"fmt"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func CreateRole(db *gorm.DB, name string, scope models.RoleScope, description string, perms []string) (*models.Role, error) {
	role := models.Role{Name: name, Scope: scope, Description: description}
	for _, p := range perms {
		role.Permissions = append(role.Permissions, models.Permission{Name: p})
	}
	if err := db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func ListRoles(db *gorm.DB, scope models.RoleScope) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	query := db.Preload("Permissions").Order("scope ASC").Order("name ASC")
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}
	if err := query.Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func findRole(db *gorm.DB, name string, scope models.RoleScope) (*models.Role, error) {
	var role models.Role
	err := db.Where("name = ? AND scope = ?", name, scope).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("load role %s: %w", name, err)
	}
	return &role, nil
}

func ensureUser(db *gorm.DB, userID uint) error {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	if count == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// AssignGlobalRole grants a global-scope role. Granting a role twice is a no-op.
func AssignGlobalRole(db *gorm.DB, userID uint, roleName string) error {
	if err := ensureUser(db, userID); err != nil {
		return err
	}
	role, err := findRole(db, roleName, models.RoleScopeGlobal)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: role.ID}).Error
}

func AssignSpaceRole(db *gorm.DB, userID, spaceID uint, roleName string) error {
	if err := ensureUser(db, userID); err != nil {
		return err
	}
	var count int64
	if err := db.Model(&models.Space{}).Where("id = ?", spaceID).Count(&count).Error; err != nil {
		return fmt.Errorf("load space %d: %w", spaceID, err)
	}
	if count == 0 {
		return apperr.NotFound("space")
	}
	role, err := findRole(db, roleName, models.RoleScopeSpace)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserSpaceRole{UserID: userID, SpaceID: spaceID, RoleID: role.ID}).Error
}

// RevokeSpaceRole removes every role userID holds in spaceID.
func RevokeSpaceRole(db *gorm.DB, userID, spaceID uint) (int64, error) {
	result := db.Where("user_id = ? AND space_id = ?", userID, spaceID).Delete(&models.UserSpaceRole{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
