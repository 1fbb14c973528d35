package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SpaceType string

const (
	SpaceTypePersonal SpaceType = "personal"
	SpaceTypeGroup    SpaceType = "group"
	SpaceTypeChannel  SpaceType = "channel"
)

type Space struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Type        SpaceType      `gorm:"size:20;index" json:"type"`
	Name        string         `gorm:"size:255" json:"name"`
	OwnerUserID *uint          `gorm:"index" json:"owner_user_id,omitempty"`
	Settings    datatypes.JSON `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SpaceSettings mirrors the settings blob. Pointer fields distinguish
// "explicitly set" from "absent".
type SpaceSettings struct {
	Publishing struct {
		RequireApproval *bool `json:"requireApproval,omitempty"`
	} `json:"publishing"`
	Visibility struct {
		Public          *bool `json:"public,omitempty"`
		ListedInSpaces  *bool `json:"listedInSpaces,omitempty"`
		CommentsEnabled *bool `json:"commentsEnabled,omitempty"`
	} `json:"visibility"`
}

// ParsedSettings decodes Settings. An empty or malformed blob yields zero settings.
func (s *Space) ParsedSettings() SpaceSettings {
	var out SpaceSettings
	if len(s.Settings) == 0 {
		return out
	}
	_ = json.Unmarshal(s.Settings, &out)
	return out
}

// SiteSettings is a singleton row (ID 1).
type SiteSettings struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	RequireGroupReview   bool      `json:"require_group_review"`
	RequireChannelReview bool      `json:"require_channel_review"`
	UpdatedAt            time.Time `json:"updated_at"`
}
