package publication_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/publication"
	"github.com/cnm4us/aws-sub000/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	svc *publication.Service

	owner, member, moderator, siteModerator, admin, stranger *models.User
	group, channel, personal                                 *models.Space
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutils.TestDB(t)

	f := &fixture{db: db}
	f.owner = testutils.CreateTestUser(t, db, "owner@test.com", "password")
	f.member = testutils.CreateTestUser(t, db, "member@test.com", "password")
	f.moderator = testutils.CreateTestUser(t, db, "moderator@test.com", "password")
	f.siteModerator = testutils.CreateTestUser(t, db, "sitemod@test.com", "password")
	f.admin = testutils.CreateTestUser(t, db, "admin@test.com", "password")
	f.stranger = testutils.CreateTestUser(t, db, "stranger@test.com", "password")

	f.group = testutils.CreateSpace(t, db, models.SpaceTypeGroup, 0, "")
	f.channel = testutils.CreateSpace(t, db, models.SpaceTypeChannel, 0, "")
	f.personal = testutils.CreateSpace(t, db, models.SpaceTypePersonal, f.owner.ID, "")

	testutils.GrantGlobalRole(t, db, f.owner.ID, "creator")
	testutils.GrantGlobalRole(t, db, f.siteModerator.ID, "site_moderator")
	testutils.GrantGlobalRole(t, db, f.admin.ID, "admin")
	testutils.GrantSpaceRole(t, db, f.owner.ID, f.group.ID, "space_member")
	testutils.GrantSpaceRole(t, db, f.member.ID, f.group.ID, "space_member")
	testutils.GrantSpaceRole(t, db, f.moderator.ID, f.group.ID, "space_moderator")
	testutils.GrantSpaceRole(t, db, f.moderator.ID, f.channel.ID, "space_moderator")

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = publication.NewService(publication.NewGormRepository(db), testutils.NewAuthorizer(db), nil).
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		})
	return f
}

// publish creates a publication of a fresh upload owned by owner.
func (f *fixture) publish(t *testing.T, owner *models.User, space *models.Space) *models.Publication {
	t.Helper()
	upload := testutils.CreateUpload(t, f.db, owner.ID, space.ID)
	pub, err := f.svc.CreateFromUpload(context.Background(), owner.ID, publication.CreateFromUploadInput{
		UploadID: upload.ID,
		SpaceID:  space.ID,
	})
	require.NoError(t, err)
	return pub
}

func (f *fixture) events(t *testing.T, pubID uint) []models.PublicationEvent {
	t.Helper()
	events, err := publication.NewGormRepository(f.db).ListEvents(context.Background(), pubID)
	require.NoError(t, err)
	return events
}

func actions(events []models.PublicationEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func assertTimestamps(t *testing.T, pub *models.Publication) {
	t.Helper()
	assert.Equal(t, pub.Status == models.StatusPublished, pub.PublishedAt != nil, "published_at tracks published status")
	unpublishedLike := pub.Status == models.StatusUnpublished || pub.Status == models.StatusRejected
	assert.Equal(t, unpublishedLike, pub.UnpublishedAt != nil, "unpublished_at tracks unpublished/rejected status")
}

func TestCreateFromUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Success - Owner auto-publishes to group", func(t *testing.T) {
		upload := testutils.CreateUpload(t, f.db, f.owner.ID, f.group.ID)
		early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		late := early.Add(time.Hour)
		testutils.CreateProduction(t, f.db, upload.ID, models.ProductionCompleted, &early)
		latest := testutils.CreateProduction(t, f.db, upload.ID, models.ProductionCompleted, &late)
		testutils.CreateProduction(t, f.db, upload.ID, models.ProductionFailed, nil)

		pub, err := f.svc.CreateFromUpload(ctx, f.owner.ID, publication.CreateFromUploadInput{
			UploadID:     upload.ID,
			SpaceID:      f.group.ID,
			Visibility:   models.VisibilityPublic,
			Distribution: map[string]bool{"feed": true},
		})
		require.NoError(t, err)

		assert.Equal(t, models.StatusPublished, pub.Status)
		require.NotNil(t, pub.ApprovedBy)
		assert.Equal(t, f.owner.ID, *pub.ApprovedBy)
		require.NotNil(t, pub.ProductionID)
		assert.Equal(t, latest.ID, *pub.ProductionID)
		assert.Equal(t, f.owner.ID, pub.OwnerUserID)
		assert.Equal(t, f.owner.ID, pub.RequestedBy)
		assert.Equal(t, models.VisibilityPublic, pub.Visibility)
		assert.True(t, pub.IsPrimary)
		assert.True(t, pub.VisibleInSpace)
		assert.False(t, pub.VisibleInGlobal)
		assertTimestamps(t, pub)

		events := f.events(t, pub.ID)
		require.Len(t, events, 1)
		assert.Equal(t, publication.ActionAutoPublished, events[0].Action)
		assert.Equal(t, f.owner.ID, events[0].ActorUserID)
		detail := publication.DecodeDetail(events[0])
		assert.Equal(t, "public", detail["visibility"])
		assert.Equal(t, map[string]any{"feed": true}, detail["distribution"])
		assert.NotEmpty(t, detail["op_id"])
	})

	t.Run("Success - Channel requires review", func(t *testing.T) {
		upload := testutils.CreateUpload(t, f.db, f.owner.ID, 0)
		pub, err := f.svc.CreateFromUpload(ctx, f.owner.ID, publication.CreateFromUploadInput{
			UploadID: upload.ID,
			SpaceID:  f.channel.ID,
		})
		require.NoError(t, err)

		assert.Equal(t, models.StatusPending, pub.Status)
		assert.Nil(t, pub.ApprovedBy)
		assert.Nil(t, pub.ProductionID)
		assert.Equal(t, models.VisibilityInherit, pub.Visibility)
		assert.False(t, pub.IsPrimary)
		assertTimestamps(t, pub)
		assert.Equal(t, []string{publication.ActionCreatePending}, actions(f.events(t, pub.ID)))
	})

	t.Run("Success - Personal space is visible globally", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.personal)
		assert.Equal(t, models.StatusPublished, pub.Status)
		assert.True(t, pub.VisibleInGlobal)
	})

	t.Run("Success - Member posts without owner permission", func(t *testing.T) {
		pub := f.publish(t, f.member, f.group)
		assert.Equal(t, models.StatusPublished, pub.Status)
	})

	t.Run("Error - Member of another space", func(t *testing.T) {
		upload := testutils.CreateUpload(t, f.db, f.member.ID, 0)
		_, err := f.svc.CreateFromUpload(ctx, f.member.ID, publication.CreateFromUploadInput{
			UploadID: upload.ID,
			SpaceID:  f.channel.ID,
		})
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("Error - Stranger cannot publish someone else's upload", func(t *testing.T) {
		upload := testutils.CreateUpload(t, f.db, f.owner.ID, 0)
		_, err := f.svc.CreateFromUpload(ctx, f.stranger.ID, publication.CreateFromUploadInput{
			UploadID: upload.ID,
			SpaceID:  f.group.ID,
		})
		assert.True(t, errors.Is(err, apperr.ErrForbidden))

		var count int64
		f.db.Model(&models.Publication{}).Where("upload_id = ?", upload.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Error - Suspended member cannot post", func(t *testing.T) {
		testutils.SuspendPosting(t, f.db, f.member.ID, f.group.ID)
		upload := testutils.CreateUpload(t, f.db, f.member.ID, 0)
		_, err := f.svc.CreateFromUpload(ctx, f.member.ID, publication.CreateFromUploadInput{
			UploadID: upload.ID,
			SpaceID:  f.group.ID,
		})
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("Error - Not found before authorization", func(t *testing.T) {
		_, err := f.svc.CreateFromUpload(ctx, f.stranger.ID, publication.CreateFromUploadInput{UploadID: 9999, SpaceID: f.group.ID})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		upload := testutils.CreateUpload(t, f.db, f.owner.ID, 0)
		_, err = f.svc.CreateFromUpload(ctx, f.stranger.ID, publication.CreateFromUploadInput{UploadID: upload.ID, SpaceID: 9999})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		_, err = f.svc.CreateFromProduction(ctx, f.owner.ID, publication.CreateFromProductionInput{ProductionID: 9999, SpaceID: f.group.ID})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("Error - Invalid visibility", func(t *testing.T) {
		upload := testutils.CreateUpload(t, f.db, f.owner.ID, 0)
		_, err := f.svc.CreateFromUpload(ctx, f.owner.ID, publication.CreateFromUploadInput{
			UploadID:   upload.ID,
			SpaceID:    f.group.ID,
			Visibility: "secret",
		})
		assert.True(t, errors.Is(err, apperr.ErrDomain))
		assert.Equal(t, "invalid_visibility", apperr.CodeOf(err))
	})
}

func TestCreateRespectsSiteAndSpaceSettings(t *testing.T) {
	f := newFixture(t)

	t.Run("Success - Site group review forces pending", func(t *testing.T) {
		testutils.SetSiteSettings(t, f.db, true, false)
		pub := f.publish(t, f.owner, f.group)
		assert.Equal(t, models.StatusPending, pub.Status)
	})

	t.Run("Success - Space opt-out honoured without site flag", func(t *testing.T) {
		testutils.SetSiteSettings(t, f.db, false, false)
		openChannel := testutils.CreateSpace(t, f.db, models.SpaceTypeChannel, 0, `{"publishing":{"requireApproval":false}}`)
		pub := f.publish(t, f.owner, openChannel)
		assert.Equal(t, models.StatusPublished, pub.Status)
	})
}

func TestCreateFromProductionDedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	upload := testutils.CreateUpload(t, f.db, f.owner.ID, f.group.ID)
	production := testutils.CreateProduction(t, f.db, upload.ID, models.ProductionCompleted, &done)
	in := publication.CreateFromProductionInput{ProductionID: production.ID, SpaceID: f.group.ID}

	first, err := f.svc.CreateFromProduction(ctx, f.owner.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, first.Status)

	t.Run("Error - Second create while published", func(t *testing.T) {
		_, err := f.svc.CreateFromProduction(ctx, f.owner.ID, in)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))

		var count int64
		f.db.Model(&models.Publication{}).Where("production_id = ? AND space_id = ?", production.ID, f.group.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Success - Second create after owner unpublish republishes same row", func(t *testing.T) {
		_, err := f.svc.Unpublish(ctx, first.ID, f.owner.ID, "")
		require.NoError(t, err)

		again, err := f.svc.CreateFromProduction(ctx, f.owner.ID, in)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, models.StatusPublished, again.Status)
		assertTimestamps(t, again)

		assert.Equal(t, []string{
			publication.ActionAutoPublished,
			publication.ActionUnpublish,
			publication.ActionOwnerRepublishPublished,
		}, actions(f.events(t, first.ID)))
	})

	t.Run("Success - Create from upload binds to the same production", func(t *testing.T) {
		_, err := f.svc.CreateFromUpload(ctx, f.owner.ID, publication.CreateFromUploadInput{UploadID: upload.ID, SpaceID: f.group.ID})
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})
}

func TestReviewTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Success - Moderator approves with note", func(t *testing.T) {
		pending := f.publish(t, f.owner, f.channel)
		require.Equal(t, models.StatusPending, pending.Status)

		pub, err := f.svc.Approve(ctx, pending.ID, f.moderator.ID, "  <b>great</b> clip ")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, pub.Status)
		require.NotNil(t, pub.ApprovedBy)
		assert.Equal(t, f.moderator.ID, *pub.ApprovedBy)
		assertTimestamps(t, pub)

		events := f.events(t, pub.ID)
		require.Equal(t, []string{
			publication.ActionCreatePending,
			publication.ActionApprove,
			publication.ActionNote,
		}, actions(events))
		approve := publication.DecodeDetail(events[1])
		note := publication.DecodeDetail(events[2])
		assert.Equal(t, "great clip", note["note"])
		assert.Equal(t, publication.ActionApprove, note["action"])
		assert.Equal(t, approve["op_id"], note["op_id"])
		assert.Equal(t, "pending", approve["from"])
		assert.Equal(t, "published", approve["to"])
	})

	t.Run("Success - Reject clears published_at", func(t *testing.T) {
		pending := f.publish(t, f.owner, f.channel)
		pub, err := f.svc.Reject(ctx, pending.ID, f.moderator.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, pub.Status)
		assertTimestamps(t, pub)
		assert.Equal(t, []string{publication.ActionCreatePending, publication.ActionReject}, actions(f.events(t, pub.ID)))
	})

	t.Run("Success - Site moderator approves in any space", func(t *testing.T) {
		pending := f.publish(t, f.owner, f.channel)
		pub, err := f.svc.Approve(ctx, pending.ID, f.siteModerator.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, pub.Status)
	})

	t.Run("Error - Owner cannot approve own publication", func(t *testing.T) {
		pending := f.publish(t, f.owner, f.channel)
		_, err := f.svc.Approve(ctx, pending.ID, f.owner.ID, "")
		assert.True(t, errors.Is(err, apperr.ErrForbidden))

		_, err = f.svc.Reject(ctx, pending.ID, f.owner.ID, "")
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("Error - Unknown publication", func(t *testing.T) {
		_, err := f.svc.Approve(ctx, 9999, f.admin.ID, "")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
		_, err = f.svc.Unpublish(ctx, 9999, f.admin.ID, "")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
		_, err = f.svc.Republish(ctx, 9999, f.admin.ID)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("Error - Stranger cannot unpublish", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.group)
		_, err := f.svc.Unpublish(ctx, pub.ID, f.stranger.ID, "")
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("Success - Admin unpublishes anything", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.group)
		out, err := f.svc.Unpublish(ctx, pub.ID, f.admin.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnpublished, out.Status)
		assertTimestamps(t, out)
	})
}

func TestRepublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Error - Owner cannot undo a moderator unpublish", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.group)
		require.Equal(t, models.StatusPublished, pub.Status)

		_, err := f.svc.Unpublish(ctx, pub.ID, f.moderator.ID, "off topic")
		require.NoError(t, err)

		_, err = f.svc.Republish(ctx, pub.ID, f.owner.ID)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))

		current, err := publication.NewGormRepository(f.db).GetByID(ctx, pub.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnpublished, current.Status)

		restored, err := f.svc.Republish(ctx, pub.ID, f.moderator.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, restored.Status)
		assertTimestamps(t, restored)

		events := f.events(t, pub.ID)
		assert.Equal(t, publication.ActionModeratorRepublish, events[len(events)-1].Action)
	})

	t.Run("Success - Owner undoes own unpublish in group", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.group)
		_, err := f.svc.Unpublish(ctx, pub.ID, f.owner.ID, "")
		require.NoError(t, err)

		restored, err := f.svc.Republish(ctx, pub.ID, f.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, restored.Status)
		require.NotNil(t, restored.ApprovedBy)
		assert.Equal(t, f.owner.ID, *restored.ApprovedBy)

		events := f.events(t, pub.ID)
		last := events[len(events)-1]
		assert.Equal(t, publication.ActionOwnerRepublishPublished, last.Action)
		assert.EqualValues(t, events[len(events)-2].ID, publication.DecodeDetail(last)["undoes_event_id"])
	})

	t.Run("Success - Owner republish in reviewed channel goes back to pending", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.channel)
		_, err := f.svc.Approve(ctx, pub.ID, f.moderator.ID, "")
		require.NoError(t, err)
		_, err = f.svc.Unpublish(ctx, pub.ID, f.owner.ID, "")
		require.NoError(t, err)

		restored, err := f.svc.Republish(ctx, pub.ID, f.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, restored.Status)
		assert.Nil(t, restored.ApprovedBy)
		assertTimestamps(t, restored)

		events := f.events(t, pub.ID)
		assert.Equal(t, publication.ActionOwnerRepublishRequested, events[len(events)-1].Action)
	})

	t.Run("Error - Rejected is terminal for the owner", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.channel)
		_, err := f.svc.Reject(ctx, pub.ID, f.moderator.ID, "")
		require.NoError(t, err)

		_, err = f.svc.Republish(ctx, pub.ID, f.owner.ID)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))

		restored, err := f.svc.Republish(ctx, pub.ID, f.moderator.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, restored.Status)
	})

	t.Run("Error - Live publications are not republishable", func(t *testing.T) {
		published := f.publish(t, f.owner, f.group)
		_, err := f.svc.Republish(ctx, published.ID, f.admin.ID)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))

		pending := f.publish(t, f.owner, f.channel)
		_, err = f.svc.Republish(ctx, pending.ID, f.admin.ID)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))

		require.NoError(t, f.db.Model(&models.Publication{}).Where("id = ?", pending.ID).
			Update("status", models.StatusApproved).Error)
		_, err = f.svc.Republish(ctx, pending.ID, f.admin.ID)
		assert.True(t, errors.Is(err, apperr.ErrInvalidState))
	})

	t.Run("Error - Stranger cannot republish", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.group)
		_, err := f.svc.Unpublish(ctx, pub.ID, f.owner.ID, "")
		require.NoError(t, err)

		_, err = f.svc.Republish(ctx, pub.ID, f.stranger.ID)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("Error - Owner republish without unpublish record", func(t *testing.T) {
		pub := f.publish(t, f.owner, f.group)
		require.NoError(t, f.db.Model(&models.Publication{}).Where("id = ?", pub.ID).
			Update("status", models.StatusUnpublished).Error)

		_, err := f.svc.Republish(ctx, pub.ID, f.owner.ID)
		assert.True(t, errors.Is(err, apperr.ErrDomain))
	})
}

func TestModerationQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.publish(t, f.owner, f.channel)
	second := f.publish(t, f.owner, f.channel)
	_, err := f.svc.Approve(ctx, first.ID, f.moderator.ID, "")
	require.NoError(t, err)

	t.Run("Success - Pending queue", func(t *testing.T) {
		pubs, err := f.svc.ListForSpace(ctx, f.moderator.ID, f.channel.ID, models.StatusPending)
		require.NoError(t, err)
		require.Len(t, pubs, 1)
		assert.Equal(t, second.ID, pubs[0].ID)
	})

	t.Run("Success - All statuses newest first", func(t *testing.T) {
		pubs, err := f.svc.ListForSpace(ctx, f.moderator.ID, f.channel.ID, "")
		require.NoError(t, err)
		require.Len(t, pubs, 2)
		assert.Equal(t, second.ID, pubs[0].ID)
	})

	t.Run("Success - Counts", func(t *testing.T) {
		counts, err := f.svc.StatusCounts(ctx, f.moderator.ID, f.channel.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[models.StatusPending])
		assert.Equal(t, int64(1), counts[models.StatusPublished])
		assert.Equal(t, int64(0), counts[models.StatusRejected])
	})

	t.Run("Error - Owner cannot read the queue", func(t *testing.T) {
		_, err := f.svc.ListForSpace(ctx, f.owner.ID, f.channel.ID, models.StatusPending)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})

	t.Run("Error - Unknown space", func(t *testing.T) {
		_, err := f.svc.StatusCounts(ctx, f.moderator.ID, 9999)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pub := f.publish(t, f.owner, f.group)
	_, err := f.svc.Unpublish(ctx, pub.ID, f.moderator.ID, "")
	require.NoError(t, err)

	t.Run("Success - Owner reads history oldest first", func(t *testing.T) {
		events, err := f.svc.ListEvents(ctx, pub.ID, f.owner.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{publication.ActionAutoPublished, publication.ActionUnpublish}, actions(events))
	})

	t.Run("Success - Space reviewer reads history", func(t *testing.T) {
		_, err := f.svc.ListEvents(ctx, pub.ID, f.moderator.ID)
		assert.NoError(t, err)
	})

	t.Run("Error - Stranger", func(t *testing.T) {
		_, err := f.svc.ListEvents(ctx, pub.ID, f.stranger.ID)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})
}
