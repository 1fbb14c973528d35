package publication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/observ"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Authorizer interface {
	Checker(ctx context.Context, userID uint) (*permission.Checker, error)
	Can(ctx context.Context, userID uint, p string, scope permission.Scope) bool
}

// Service drives the publication lifecycle. Every status change is written
// together with its audit event in one transaction.
type Service struct {
	repo    Repository
	authz   Authorizer
	logger  *zap.Logger
	now     func() time.Time
	newOpID func() string
}

func NewService(repo Repository, authz Authorizer, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		authz:   authz,
		logger:  observ.OrNop(logger),
		now:     func() time.Time { return time.Now().UTC() },
		newOpID: func() string { return uuid.NewString() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateFromUploadInput struct {
	UploadID     uint
	SpaceID      uint
	Visibility   models.Visibility
	Distribution map[string]bool
}

type CreateFromProductionInput struct {
	ProductionID uint
	SpaceID      uint
	Visibility   models.Visibility
	Distribution map[string]bool
}

type createParams struct {
	upload       *models.Upload
	space        *models.Space
	productionID *uint
	visibility   models.Visibility
	distribution map[string]bool
}

// CreateFromUpload publishes an upload into a space, bound to the upload's
// latest completed production when one exists.
func (s *Service) CreateFromUpload(ctx context.Context, actorID uint, in CreateFromUploadInput) (*models.Publication, error) {
	upload, err := s.repo.LoadUpload(ctx, in.UploadID)
	if err != nil {
		return nil, err
	}
	space, err := s.repo.LoadSpace(ctx, in.SpaceID)
	if err != nil {
		return nil, err
	}
	production, err := s.repo.FindLatestCompletedProductionForUpload(ctx, upload.ID)
	if err != nil {
		return nil, err
	}

	var productionID *uint
	if production != nil {
		id := production.ID
		productionID = &id
	}

	return s.create(ctx, actorID, createParams{
		upload:       upload,
		space:        space,
		productionID: productionID,
		visibility:   in.Visibility,
		distribution: in.Distribution,
	})
}

// CreateFromProduction publishes a specific production into a space.
func (s *Service) CreateFromProduction(ctx context.Context, actorID uint, in CreateFromProductionInput) (*models.Publication, error) {
	production, err := s.repo.LoadProduction(ctx, in.ProductionID)
	if err != nil {
		return nil, err
	}
	upload, err := s.repo.LoadUpload(ctx, production.UploadID)
	if err != nil {
		return nil, err
	}
	space, err := s.repo.LoadSpace(ctx, in.SpaceID)
	if err != nil {
		return nil, err
	}

	id := production.ID
	return s.create(ctx, actorID, createParams{
		upload:       upload,
		space:        space,
		productionID: &id,
		visibility:   in.Visibility,
		distribution: in.Distribution,
	})
}

func (s *Service) create(ctx context.Context, actorID uint, p createParams) (*models.Publication, error) {
	if p.productionID != nil {
		existing, err := s.repo.GetByProductionSpace(ctx, *p.productionID, p.space.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("publication exists for production, republishing",
				zap.Uint("publication_id", existing.ID),
				zap.Uint("actor_id", actorID),
			)
			return s.Republish(ctx, existing.ID, actorID)
		}
	}

	visibility := p.visibility
	if visibility == "" {
		visibility = models.VisibilityInherit
	}
	if !visibility.Valid() {
		return nil, apperr.Domain("invalid_visibility", fmt.Sprintf("unknown visibility %q", visibility))
	}

	checker, err := s.authz.Checker(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	if !s.canCreate(ctx, actorID, checker, p.upload, p.space) {
		return nil, apperr.Forbidden("cannot_publish_to_space")
	}

	requireApproval, err := s.EffectiveRequiresApproval(ctx, p.space)
	if err != nil {
		return nil, err
	}

	distribution := p.distribution
	if distribution == nil {
		distribution = map[string]bool{}
	}
	flags, err := json.Marshal(distribution)
	if err != nil {
		return nil, fmt.Errorf("marshal distribution flags: %w", err)
	}

	now := s.now()
	pub := &models.Publication{
		UploadID:        p.upload.ID,
		ProductionID:    p.productionID,
		SpaceID:         p.space.ID,
		RequestedBy:     actorID,
		IsPrimary:       p.upload.OriginSpaceID != nil && *p.upload.OriginSpaceID == p.space.ID,
		Visibility:      visibility,
		Distribution:    datatypes.JSON(flags),
		OwnerUserID:     p.upload.OwnerUserID,
		VisibleInSpace:  true,
		VisibleInGlobal: p.space.Type == models.SpaceTypePersonal,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	action := ActionAutoPublished
	if requireApproval {
		pub.Status = models.StatusPending
		action = ActionCreatePending
	} else {
		approver := actorID
		pub.Status = models.StatusPublished
		pub.ApprovedBy = &approver
		pub.PublishedAt = &now
	}

	detail := Detail{
		"visibility":   visibility,
		"distribution": distribution,
		"op_id":        s.newOpID(),
	}

	var created *models.Publication
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		row, err := tx.Insert(ctx, pub)
		if err != nil {
			return err
		}
		created = row
		return tx.InsertEvent(ctx, row.ID, actorID, action, detail, now)
	})
	if errors.Is(err, ErrDuplicate) && p.productionID != nil {
		// lost a race with a concurrent create for the same pair
		existing, gerr := s.repo.GetByProductionSpace(ctx, *p.productionID, p.space.ID)
		if gerr != nil {
			return nil, gerr
		}
		if existing != nil {
			return s.Republish(ctx, existing.ID, actorID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create publication: %w", err)
	}

	s.logger.Info("publication created",
		zap.Uint("publication_id", created.ID),
		zap.Uint("space_id", created.SpaceID),
		zap.Uint("actor_id", actorID),
		zap.String("status", string(created.Status)),
	)
	return created, nil
}

func (s *Service) canCreate(ctx context.Context, actorID uint, checker *permission.Checker, upload *models.Upload, space *models.Space) bool {
	if checker.HasGlobalPermission(permission.AdminShortcut) {
		return true
	}
	if s.authz.Can(ctx, actorID, permission.VideoPublishOwn, permission.Scope{OwnerID: upload.OwnerUserID, Checker: checker}) {
		return true
	}
	scope := permission.Scope{SpaceID: space.ID, Checker: checker}
	return s.authz.Can(ctx, actorID, permission.VideoPublishSpace, scope) ||
		s.authz.Can(ctx, actorID, permission.SpacePost, scope)
}

// Approve publishes a publication. Any current status is accepted.
func (s *Service) Approve(ctx context.Context, publicationID, actorID uint, note string) (*models.Publication, error) {
	pub, checker, err := s.loadForActor(ctx, publicationID, actorID)
	if err != nil {
		return nil, err
	}
	if !s.canReview(ctx, actorID, checker, pub) {
		return nil, apperr.Forbidden("cannot_approve")
	}

	now := s.now()
	return s.transition(ctx, pub, actorID, StatusUpdate{
		Status:        models.StatusPublished,
		ApprovedBy:    Set(actorID),
		PublishedAt:   Set(now),
		UnpublishedAt: Clear[time.Time](),
		UpdatedAt:     now,
	}, ActionApprove, note, Detail{})
}

// Reject moves a publication to rejected. Owners cannot republish from there.
func (s *Service) Reject(ctx context.Context, publicationID, actorID uint, note string) (*models.Publication, error) {
	pub, checker, err := s.loadForActor(ctx, publicationID, actorID)
	if err != nil {
		return nil, err
	}
	if !s.canReview(ctx, actorID, checker, pub) {
		return nil, apperr.Forbidden("cannot_reject")
	}

	now := s.now()
	return s.transition(ctx, pub, actorID, StatusUpdate{
		Status:        models.StatusRejected,
		PublishedAt:   Clear[time.Time](),
		UnpublishedAt: Set(now),
		UpdatedAt:     now,
	}, ActionReject, note, Detail{})
}

func (s *Service) Unpublish(ctx context.Context, publicationID, actorID uint, note string) (*models.Publication, error) {
	pub, checker, err := s.loadForActor(ctx, publicationID, actorID)
	if err != nil {
		return nil, err
	}

	allowed := checker.HasGlobalPermission(permission.AdminShortcut) ||
		s.authz.Can(ctx, actorID, permission.VideoUnpublishOwn, permission.Scope{OwnerID: pub.OwnerUserID, Checker: checker}) ||
		s.authz.Can(ctx, actorID, permission.VideoUnpublish, permission.Scope{SpaceID: pub.SpaceID, Checker: checker})
	if !allowed {
		return nil, apperr.Forbidden("cannot_unpublish")
	}

	now := s.now()
	return s.transition(ctx, pub, actorID, StatusUpdate{
		Status:        models.StatusUnpublished,
		PublishedAt:   Clear[time.Time](),
		UnpublishedAt: Set(now),
		UpdatedAt:     now,
	}, ActionUnpublish, note, Detail{})
}

// Republish restores an unpublished or rejected publication. Space publishers
// restore it straight to published; owners may only undo their own unpublish.
func (s *Service) Republish(ctx context.Context, publicationID, actorID uint) (*models.Publication, error) {
	pub, err := s.repo.GetByID(ctx, publicationID)
	if err != nil {
		return nil, err
	}
	if !republishable(pub.Status) {
		return nil, apperr.InvalidState("not_republishable", fmt.Sprintf("publication is %s", pub.Status))
	}

	checker, err := s.authz.Checker(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}

	now := s.now()
	if checker.HasGlobalPermission(permission.AdminShortcut) ||
		s.authz.Can(ctx, actorID, permission.VideoPublishSpace, permission.Scope{SpaceID: pub.SpaceID, Checker: checker}) {
		return s.transition(ctx, pub, actorID, StatusUpdate{
			Status:        models.StatusPublished,
			ApprovedBy:    Set(actorID),
			PublishedAt:   Set(now),
			UnpublishedAt: Clear[time.Time](),
			UpdatedAt:     now,
		}, ActionModeratorRepublish, "", Detail{})
	}

	if !s.authz.Can(ctx, actorID, permission.VideoPublishOwn, permission.Scope{OwnerID: pub.OwnerUserID, Checker: checker}) {
		return nil, apperr.Forbidden("cannot_republish")
	}
	if pub.Status == models.StatusRejected {
		return nil, apperr.Forbidden("publication_rejected")
	}

	events, err := s.repo.ListEvents(ctx, pub.ID)
	if err != nil {
		return nil, err
	}
	last := lastEventWithAction(events, ActionUnpublish)
	if last == nil {
		return nil, apperr.Domain("no_unpublish_record", "publication has no unpublish event to undo")
	}
	if last.ActorUserID != actorID {
		return nil, apperr.Forbidden("unpublished_by_moderator")
	}

	space, err := s.repo.LoadSpace(ctx, pub.SpaceID)
	if err != nil {
		return nil, err
	}
	requireApproval, err := s.EffectiveRequiresApproval(ctx, space)
	if err != nil {
		return nil, err
	}

	detail := Detail{"undoes_event_id": last.ID}
	if requireApproval {
		return s.transition(ctx, pub, actorID, StatusUpdate{
			Status:        models.StatusPending,
			ApprovedBy:    Clear[uint](),
			PublishedAt:   Clear[time.Time](),
			UnpublishedAt: Clear[time.Time](),
			UpdatedAt:     now,
		}, ActionOwnerRepublishRequested, "", detail)
	}
	return s.transition(ctx, pub, actorID, StatusUpdate{
		Status:        models.StatusPublished,
		ApprovedBy:    Set(actorID),
		PublishedAt:   Set(now),
		UnpublishedAt: Clear[time.Time](),
		UpdatedAt:     now,
	}, ActionOwnerRepublishPublished, "", detail)
}

func republishable(status models.PublicationStatus) bool {
	switch status {
	case models.StatusPublished, models.StatusPending, models.StatusApproved:
		return false
	}
	return true
}

func (s *Service) loadForActor(ctx context.Context, publicationID, actorID uint) (*models.Publication, *permission.Checker, error) {
	pub, err := s.repo.GetByID(ctx, publicationID)
	if err != nil {
		return nil, nil, err
	}
	checker, err := s.authz.Checker(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve permissions: %w", err)
	}
	return pub, checker, nil
}

func (s *Service) canReview(ctx context.Context, actorID uint, checker *permission.Checker, pub *models.Publication) bool {
	if checker.HasGlobalPermission(permission.AdminShortcut) {
		return true
	}
	return s.authz.Can(ctx, actorID, permission.VideoApproveSpace, permission.Scope{SpaceID: pub.SpaceID, Checker: checker}) ||
		s.authz.Can(ctx, actorID, permission.VideoApprove, permission.Scope{Checker: checker})
}

// transition writes the status change, its event and an optional note event
// atomically. All events of one transition share an op_id.
func (s *Service) transition(ctx context.Context, pub *models.Publication, actorID uint, update StatusUpdate, action, note string, detail Detail) (*models.Publication, error) {
	opID := s.newOpID()
	detail["op_id"] = opID
	detail["from"] = pub.Status
	detail["to"] = update.Status
	note = cleanNote(note)
	at := update.UpdatedAt
	if at.IsZero() {
		at = s.now()
	}

	var updated *models.Publication
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		row, err := tx.UpdateStatus(ctx, pub.ID, update)
		if err != nil {
			return err
		}
		updated = row
		if err := tx.InsertEvent(ctx, pub.ID, actorID, action, detail, at); err != nil {
			return err
		}
		if note == "" {
			return nil
		}
		return tx.InsertEvent(ctx, pub.ID, actorID, ActionNote, Detail{
			"op_id":  opID,
			"action": action,
			"note":   note,
		}, at)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	s.logger.Info("publication status changed",
		zap.Uint("publication_id", pub.ID),
		zap.Uint("actor_id", actorID),
		zap.String("action", action),
		zap.String("from", string(pub.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("op_id", opID),
	)
	return updated, nil
}

// ListEvents returns a publication's audit log to its owner or a reviewer of
// its space.
func (s *Service) ListEvents(ctx context.Context, publicationID, actorID uint) ([]models.PublicationEvent, error) {
	pub, checker, err := s.loadForActor(ctx, publicationID, actorID)
	if err != nil {
		return nil, err
	}
	if pub.OwnerUserID != actorID &&
		!s.authz.Can(ctx, actorID, permission.VideoReviewSpace, permission.Scope{SpaceID: pub.SpaceID, Checker: checker}) {
		return nil, apperr.Forbidden("cannot_view_events")
	}
	return s.repo.ListEvents(ctx, pub.ID)
}

// ListForSpace is the moderation queue of a space, newest first. An empty
// status lists every publication.
func (s *Service) ListForSpace(ctx context.Context, actorID, spaceID uint, status models.PublicationStatus) ([]models.Publication, error) {
	if err := s.requireReviewer(ctx, actorID, spaceID); err != nil {
		return nil, err
	}
	return s.repo.ListBySpace(ctx, spaceID, status)
}

func (s *Service) StatusCounts(ctx context.Context, actorID, spaceID uint) (map[models.PublicationStatus]int64, error) {
	if err := s.requireReviewer(ctx, actorID, spaceID); err != nil {
		return nil, err
	}
	return s.repo.CountByStatus(ctx, spaceID)
}

func (s *Service) requireReviewer(ctx context.Context, actorID, spaceID uint) error {
	if _, err := s.repo.LoadSpace(ctx, spaceID); err != nil {
		return err
	}
	checker, err := s.authz.Checker(ctx, actorID)
	if err != nil {
		return fmt.Errorf("resolve permissions: %w", err)
	}
	if !s.authz.Can(ctx, actorID, permission.VideoReviewSpace, permission.Scope{SpaceID: spaceID, Checker: checker}) {
		return apperr.Forbidden("cannot_review_space")
	}
	return nil
}
