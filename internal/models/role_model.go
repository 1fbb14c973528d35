package models

import (
	"time"
)

type RoleScope string

const (
	RoleScopeGlobal RoleScope = "global"
	RoleScopeSpace  RoleScope = "space"
)

// Role is static reference data. The same name may exist once per scope,
// each with its own permission set.
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:100;uniqueIndex:idx_role_name_scope" json:"name"`
	Scope       RoleScope    `gorm:"size:20;uniqueIndex:idx_role_name_scope" json:"scope"`
	Description string       `json:"description"`
	Permissions []Permission `gorm:"foreignKey:RoleID" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoleID    uint      `gorm:"uniqueIndex:idx_role_permission" json:"role_id"`
	Name      string    `gorm:"size:100;uniqueIndex:idx_role_permission;index" json:"name"` // e.g. "video:publish_space"
	CreatedAt time.Time `json:"created_at"`
}

// UserRole assigns a global-scope role.
type UserRole struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RoleID    uint      `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSpaceRole assigns a space-scope role within one space.
type UserSpaceRole struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	SpaceID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"space_id"`
	RoleID    uint      `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
