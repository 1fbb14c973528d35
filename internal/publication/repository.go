package publication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrDuplicate is returned by Insert when a row already exists for the
// (production_id, space_id) pair.
var ErrDuplicate = errors.New("publication already exists for production and space")

// Detail is the schema-less payload of an audit event. Keys vary by action.
type Detail map[string]any

// Repository is the persistence boundary of the workflow. Lookups of missing
// rows return apperr NotFound errors, except the Find/GetBy* pair-lookups,
// which return nil, nil.
type Repository interface {
	LoadUpload(ctx context.Context, id uint) (*models.Upload, error)
	LoadProduction(ctx context.Context, id uint) (*models.Production, error)
	LoadSpace(ctx context.Context, id uint) (*models.Space, error)
	FindLatestCompletedProductionForUpload(ctx context.Context, uploadID uint) (*models.Production, error)
	GetByProductionSpace(ctx context.Context, productionID, spaceID uint) (*models.Publication, error)
	GetByID(ctx context.Context, id uint) (*models.Publication, error)
	Insert(ctx context.Context, pub *models.Publication) (*models.Publication, error)
	UpdateStatus(ctx context.Context, id uint, update StatusUpdate) (*models.Publication, error)
	// InsertEvent appends an audit event stamped with at.
	InsertEvent(ctx context.Context, publicationID, actorID uint, action string, detail Detail, at time.Time) error
	ListEvents(ctx context.Context, publicationID uint) ([]models.PublicationEvent, error)
	LoadSiteSettings(ctx context.Context) (models.SiteSettings, error)
	ListBySpace(ctx context.Context, spaceID uint, status models.PublicationStatus) ([]models.Publication, error)
	CountByStatus(ctx context.Context, spaceID uint) (map[models.PublicationStatus]int64, error)

	// Transaction runs fn against a Repository bound to one database
	// transaction. fn must use only the Repository it is given.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

// Patch is an optional column write. A set Patch with no value clears the column.
type Patch[T any] struct {
	set   bool
	value *T
}

func Set[T any](v T) Patch[T] {
	return Patch[T]{set: true, value: &v}
}

func Clear[T any]() Patch[T] {
	return Patch[T]{set: true}
}

func (p Patch[T]) IsSet() bool { return p.set }

// Value returns the patched value, or nil when the patch clears the column.
func (p Patch[T]) Value() *T { return p.value }

func (p Patch[T]) put(cols map[string]interface{}, column string) {
	if !p.set {
		return
	}
	if p.value == nil {
		cols[column] = gorm.Expr("NULL")
		return
	}
	cols[column] = *p.value
}

// StatusUpdate is the partial row written by a transition.
type StatusUpdate struct {
	Status        models.PublicationStatus
	ApprovedBy    Patch[uint]
	PublishedAt   Patch[time.Time]
	UnpublishedAt Patch[time.Time]
	UpdatedAt     time.Time
}

func (u StatusUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"status": u.Status,
	}
	if !u.UpdatedAt.IsZero() {
		cols["updated_at"] = u.UpdatedAt
	}
	u.ApprovedBy.put(cols, "approved_by")
	u.PublishedAt.put(cols, "published_at")
	u.UnpublishedAt.put(cols, "unpublished_at")
	return cols
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

func (r *GormRepository) LoadUpload(ctx context.Context, id uint) (*models.Upload, error) {
	var upload models.Upload
	if err := r.first(ctx, &upload, id, "upload"); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *GormRepository) LoadProduction(ctx context.Context, id uint) (*models.Production, error) {
	var production models.Production
	if err := r.first(ctx, &production, id, "production"); err != nil {
		return nil, err
	}
	return &production, nil
}

func (r *GormRepository) LoadSpace(ctx context.Context, id uint) (*models.Space, error) {
	var space models.Space
	if err := r.first(ctx, &space, id, "space"); err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *GormRepository) GetByID(ctx context.Context, id uint) (*models.Publication, error) {
	var pub models.Publication
	if err := r.first(ctx, &pub, id, "publication"); err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *GormRepository) first(ctx context.Context, dest interface{}, id uint, resource string) error {
	if id == 0 {
		return apperr.NotFound(resource)
	}
	err := r.db.WithContext(ctx).First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource)
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", resource, id, err)
	}
	return nil
}

func (r *GormRepository) FindLatestCompletedProductionForUpload(ctx context.Context, uploadID uint) (*models.Production, error) {
	var production models.Production
	result := r.db.WithContext(ctx).
		Where("upload_id = ? AND status = ?", uploadID, models.ProductionCompleted).
		Order("completed_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&production)
	if result.Error != nil {
		return nil, fmt.Errorf("find completed production: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &production, nil
}

func (r *GormRepository) GetByProductionSpace(ctx context.Context, productionID, spaceID uint) (*models.Publication, error) {
	var pub models.Publication
	result := r.db.WithContext(ctx).
		Where("production_id = ? AND space_id = ?", productionID, spaceID).
		Limit(1).
		Find(&pub)
	if result.Error != nil {
		return nil, fmt.Errorf("find publication by production: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &pub, nil
}

func (r *GormRepository) Insert(ctx context.Context, pub *models.Publication) (*models.Publication, error) {
	row := *pub
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert publication: %w", err)
	}
	return &row, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id uint, update StatusUpdate) (*models.Publication, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Publication{}).
		Where("id = ?", id).
		Updates(update.columns())
	if result.Error != nil {
		return nil, fmt.Errorf("update publication %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("publication")
	}
	return r.GetByID(ctx, id)
}

func (r *GormRepository) InsertEvent(ctx context.Context, publicationID, actorID uint, action string, detail Detail, at time.Time) error {
	event := models.PublicationEvent{
		PublicationID: publicationID,
		ActorUserID:   actorID,
		Action:        action,
		CreatedAt:     at,
	}
	if len(detail) > 0 {
		payload, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshal event detail: %w", err)
		}
		event.Detail = datatypes.JSON(payload)
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("insert publication event: %w", err)
	}
	return nil
}

// ListEvents returns the event log oldest first.
func (r *GormRepository) ListEvents(ctx context.Context, publicationID uint) ([]models.PublicationEvent, error) {
	events := make([]models.PublicationEvent, 0)
	err := r.db.WithContext(ctx).
		Where("publication_id = ?", publicationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list publication events: %w", err)
	}
	return events, nil
}

// LoadSiteSettings returns the singleton settings row, or all-false defaults
// when none has been written.
func (r *GormRepository) LoadSiteSettings(ctx context.Context) (models.SiteSettings, error) {
	var settings models.SiteSettings
	result := r.db.WithContext(ctx).Order("id ASC").Limit(1).Find(&settings)
	if result.Error != nil {
		return models.SiteSettings{}, fmt.Errorf("load site settings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.SiteSettings{}, nil
	}
	return settings, nil
}

func (r *GormRepository) ListBySpace(ctx context.Context, spaceID uint, status models.PublicationStatus) ([]models.Publication, error) {
	query := r.db.WithContext(ctx).Where("space_id = ?", spaceID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	pubs := make([]models.Publication, 0)
	if err := query.Order("created_at DESC").Order("id DESC").Find(&pubs).Error; err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	return pubs, nil
}

func (r *GormRepository) CountByStatus(ctx context.Context, spaceID uint) (map[models.PublicationStatus]int64, error) {
	var rows []struct {
		Status models.PublicationStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Publication{}).
		Select("status, COUNT(*) AS total").
		Where("space_id = ?", spaceID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count publications: %w", err)
	}

	counts := map[models.PublicationStatus]int64{
		models.StatusPending:     0,
		models.StatusPublished:   0,
		models.StatusRejected:    0,
		models.StatusUnpublished: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite without gorm error translation
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
