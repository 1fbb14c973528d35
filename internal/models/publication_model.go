package models

import (
	"time"

	"gorm.io/datatypes"
)

type PublicationStatus string

const (
	StatusPending     PublicationStatus = "pending"
	StatusPublished   PublicationStatus = "published"
	StatusRejected    PublicationStatus = "rejected"
	StatusUnpublished PublicationStatus = "unpublished"

	// StatusApproved is never written; legacy rows may still carry it.
	StatusApproved PublicationStatus = "approved"
)

type Visibility string

const (
	VisibilityInherit Visibility = "inherit"
	VisibilityMembers Visibility = "members"
	VisibilityPublic  Visibility = "public"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityInherit, VisibilityMembers, VisibilityPublic:
		return true
	}
	return false
}

// Publication is one upload/production's presence within one space.
// At most one row exists per (production_id, space_id) when production_id is set.
type Publication struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UploadID        uint              `gorm:"index" json:"upload_id"`
	ProductionID    *uint             `gorm:"uniqueIndex:idx_publication_production_space" json:"production_id,omitempty"`
	SpaceID         uint              `gorm:"uniqueIndex:idx_publication_production_space;index" json:"space_id"`
	Status          PublicationStatus `gorm:"size:20;index" json:"status"`
	RequestedBy     uint              `json:"requested_by"`
	ApprovedBy      *uint             `json:"approved_by,omitempty"`
	IsPrimary       bool              `json:"is_primary"`
	Visibility      Visibility        `gorm:"size:20" json:"visibility"`
	Distribution    datatypes.JSON    `json:"distribution_flags,omitempty"`
	OwnerUserID     uint              `gorm:"index" json:"owner_user_id"`
	VisibleInSpace  bool              `json:"visible_in_space"`
	VisibleInGlobal bool              `json:"visible_in_global"`
	PublishedAt     *time.Time        `json:"published_at,omitempty"`
	UnpublishedAt   *time.Time        `json:"unpublished_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// PublicationEvent is append-only.
type PublicationEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	PublicationID uint           `gorm:"index" json:"publication_id"`
	ActorUserID   uint           `gorm:"index" json:"actor_user_id"`
	Action        string         `gorm:"size:64;index" json:"action"`
	Detail        datatypes.JSON `json:"detail,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
