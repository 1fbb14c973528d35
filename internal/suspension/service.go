package suspension

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/observ"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Authorizer interface {
	Checker(ctx context.Context, userID uint) (*permission.Checker, error)
	Can(ctx context.Context, userID uint, p string, scope permission.Scope) bool
}

// Service creates and lifts suspensions. Rows are never deleted.
type Service struct {
	db     *gorm.DB
	authz  Authorizer
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, authz Authorizer, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		authz:  authz,
		logger: observ.OrNop(logger),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type SuspendInput struct {
	UserID     uint
	Kind       models.SuspensionKind
	TargetType models.SuspensionTarget
	TargetID   uint
	StartsAt   *time.Time
	EndsAt     *time.Time
	Reason     string
}

func (s *Service) Suspend(ctx context.Context, actorID uint, in SuspendInput) (*models.Suspension, error) {
	if in.UserID == 0 {
		return nil, apperr.Domain("user_required", "user_id is required")
	}
	switch in.Kind {
	case models.SuspensionPosting, models.SuspensionBan:
	default:
		return nil, apperr.Domain("invalid_kind", fmt.Sprintf("unknown suspension kind %q", in.Kind))
	}

	var targetID *uint
	switch in.TargetType {
	case models.SuspensionTargetSite:
	case models.SuspensionTargetSpace:
		// bans are enforced at authentication, which has no space context
		if in.Kind == models.SuspensionBan {
			return nil, apperr.Domain("ban_site_only", "bans apply site-wide; use a posting suspension for a space")
		}
		if in.TargetID == 0 {
			return nil, apperr.Domain("target_required", "space suspensions need a target_id")
		}
		var space models.Space
		if err := s.db.WithContext(ctx).First(&space, in.TargetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("space")
			}
			return nil, fmt.Errorf("load space: %w", err)
		}
		id := in.TargetID
		targetID = &id
	default:
		return nil, apperr.Domain("invalid_target", fmt.Sprintf("unknown target type %q", in.TargetType))
	}

	if !s.canManage(ctx, actorID, in.TargetType, in.TargetID) {
		return nil, apperr.Forbidden("cannot_manage_suspensions")
	}

	now := s.now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = in.StartsAt.UTC()
	}
	var endsAt *time.Time
	if in.EndsAt != nil {
		e := in.EndsAt.UTC()
		if !e.After(startsAt) {
			return nil, apperr.Domain("invalid_window", "ends_at must be after starts_at")
		}
		endsAt = &e
	}

	row := models.Suspension{
		UserID:     in.UserID,
		Kind:       in.Kind,
		TargetType: in.TargetType,
		TargetID:   targetID,
		Reason:     strings.TrimSpace(in.Reason),
		CreatedBy:  actorID,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create suspension: %w", err)
	}

	s.logger.Info("suspension created",
		zap.Uint("suspension_id", row.ID),
		zap.Uint("user_id", row.UserID),
		zap.String("kind", string(row.Kind)),
		zap.String("target_type", string(row.TargetType)),
		zap.Uint("actor_id", actorID),
	)
	return &row, nil
}

// Lift ends an active suspension by stamping ends_at with the current time.
func (s *Service) Lift(ctx context.Context, actorID, suspensionID uint) (*models.Suspension, error) {
	var row models.Suspension
	if err := s.db.WithContext(ctx).First(&row, suspensionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("suspension")
		}
		return nil, fmt.Errorf("load suspension: %w", err)
	}

	var targetID uint
	if row.TargetID != nil {
		targetID = *row.TargetID
	}
	if !s.canManage(ctx, actorID, row.TargetType, targetID) {
		return nil, apperr.Forbidden("cannot_manage_suspensions")
	}

	now := s.now()
	if row.EndsAt != nil && !row.EndsAt.After(now) {
		return nil, apperr.InvalidState("suspension_ended", "suspension has already ended")
	}

	if err := s.db.WithContext(ctx).Model(&row).Update("ends_at", now).Error; err != nil {
		return nil, fmt.Errorf("lift suspension: %w", err)
	}
	row.EndsAt = &now

	s.logger.Info("suspension lifted",
		zap.Uint("suspension_id", row.ID),
		zap.Uint("user_id", row.UserID),
		zap.Uint("actor_id", actorID),
	)
	return &row, nil
}

// ListActive returns the user's currently active suspensions, newest first.
func (s *Service) ListActive(ctx context.Context, userID uint) ([]models.Suspension, error) {
	now := s.now()
	rows := make([]models.Suspension, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now).
		Order("starts_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	return rows, nil
}

func (s *Service) canManage(ctx context.Context, actorID uint, target models.SuspensionTarget, spaceID uint) bool {
	checker, err := s.authz.Checker(ctx, actorID)
	if err != nil {
		s.logger.Error("permission lookup failed", zap.Uint("actor_id", actorID), zap.Error(err))
		return false
	}
	if s.authz.Can(ctx, actorID, permission.ModerationSuspend, permission.Scope{Checker: checker}) {
		return true
	}
	if target == models.SuspensionTargetSpace {
		return s.authz.Can(ctx, actorID, permission.SpaceManage, permission.Scope{SpaceID: spaceID, Checker: checker})
	}
	return false
}
