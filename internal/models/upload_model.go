package models

import (
	"time"
)

type Upload struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID   uint      `gorm:"index" json:"owner_user_id"`
	OriginSpaceID *uint     `json:"origin_space_id,omitempty"`
	Title         string    `gorm:"size:255" json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ProductionStatus string

const (
	ProductionQueued     ProductionStatus = "queued"
	ProductionProcessing ProductionStatus = "processing"
	ProductionCompleted  ProductionStatus = "completed"
	ProductionFailed     ProductionStatus = "failed"
)

// Production is a derived rendition of an Upload.
type Production struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UploadID    uint             `gorm:"index" json:"upload_id"`
	Status      ProductionStatus `gorm:"size:20;index" json:"status"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
