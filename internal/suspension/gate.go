package suspension

import (
	"context"
	"time"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/observ"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gate answers whether a user is currently barred from posting.
type Gate struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewGate(db *gorm.DB, logger *zap.Logger) *Gate {
	return &Gate{
		db:     db,
		logger: observ.OrNop(logger),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// IsPostingSuspended reports an active posting suspension that is site-wide or,
// when spaceID is non-zero, scoped to that space. Store errors fail open.
func (g *Gate) IsPostingSuspended(ctx context.Context, userID, spaceID uint) bool {
	q := g.active(ctx, userID, models.SuspensionPosting)
	if spaceID != 0 {
		q = q.Where("target_type = ? OR (target_type = ? AND target_id = ?)",
			models.SuspensionTargetSite, models.SuspensionTargetSpace, spaceID)
	} else {
		q = q.Where("target_type = ?", models.SuspensionTargetSite)
	}
	return g.exists(q, "posting", userID, spaceID)
}

// IsBanned reports an active site-wide ban. Store errors fail open.
func (g *Gate) IsBanned(ctx context.Context, userID uint) bool {
	q := g.active(ctx, userID, models.SuspensionBan).
		Where("target_type = ?", models.SuspensionTargetSite)
	return g.exists(q, "ban", userID, 0)
}

func (g *Gate) active(ctx context.Context, userID uint, kind models.SuspensionKind) *gorm.DB {
	now := g.now()
	return g.db.WithContext(ctx).Model(&models.Suspension{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Where("starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at >= ?", now)
}

func (g *Gate) exists(q *gorm.DB, check string, userID, spaceID uint) bool {
	var count int64
	if err := q.Count(&count).Error; err != nil {
		g.logger.Warn("suspension lookup failed, treating as not suspended",
			zap.String("check", check),
			zap.Uint("user_id", userID),
			zap.Uint("space_id", spaceID),
			zap.Error(err),
		)
		return false
	}
	return count > 0
}
