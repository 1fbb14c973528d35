package models

import (
	"time"
)

type SuspensionKind string

const (
	SuspensionPosting SuspensionKind = "posting"
	SuspensionBan     SuspensionKind = "ban"
)

type SuspensionTarget string

const (
	SuspensionTargetSite  SuspensionTarget = "site"
	SuspensionTargetSpace SuspensionTarget = "space"
)

// Suspension rows are never deleted; lifting one stamps EndsAt.
type Suspension struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"index:idx_suspension_lookup" json:"user_id"`
	Kind       SuspensionKind   `gorm:"size:20;index:idx_suspension_lookup" json:"kind"`
	TargetType SuspensionTarget `gorm:"size:20" json:"target_type"`
	TargetID   *uint            `json:"target_id,omitempty"`
	Reason     string           `gorm:"type:text" json:"reason,omitempty"`
	CreatedBy  uint             `json:"created_by"`
	StartsAt   time.Time        `json:"starts_at"`
	EndsAt     *time.Time       `json:"ends_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ActiveAt reports whether starts_at <= now <= ends_at (or ends_at is NULL).
func (s *Suspension) ActiveAt(now time.Time) bool {
	if s.StartsAt.After(now) {
		return false
	}
	return s.EndsAt == nil || !now.After(*s.EndsAt)
}
