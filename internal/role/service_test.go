package role_test

import (
	"testing"

	"github.com/cnm4us/aws-sub000/internal/apperr"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/role"
	"github.com/cnm4us/aws-sub000/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultRoles(t *testing.T) {
	db := testutils.TestDB(t)

	t.Run("Success - Seeding twice is a no-op", func(t *testing.T) {
		var before int64
		require.NoError(t, db.Model(&models.Role{}).Count(&before).Error)

		require.NoError(t, role.SeedDefaultRoles(db))

		var after int64
		require.NoError(t, db.Model(&models.Role{}).Count(&after).Error)
		assert.Equal(t, before, after)
	})

	t.Run("Success - Scopes are listed separately", func(t *testing.T) {
		global, err := role.ListRoles(db, models.RoleScopeGlobal)
		require.NoError(t, err)
		for _, r := range global {
			assert.Equal(t, models.RoleScopeGlobal, r.Scope)
		}

		space, err := role.ListRoles(db, models.RoleScopeSpace)
		require.NoError(t, err)
		names := make([]string, 0, len(space))
		for _, r := range space {
			names = append(names, r.Name)
		}
		assert.Contains(t, names, "space_admin")
		assert.Contains(t, names, "space_moderator")
		assert.NotContains(t, names, "creator")
	})

	t.Run("Success - Admin carries the shortcut", func(t *testing.T) {
		roles, err := role.ListRoles(db, models.RoleScopeGlobal)
		require.NoError(t, err)
		for _, r := range roles {
			if r.Name != "admin" {
				continue
			}
			perms := make([]string, 0, len(r.Permissions))
			for _, p := range r.Permissions {
				perms = append(perms, p.Name)
			}
			assert.Contains(t, perms, permission.AdminShortcut)
			return
		}
		t.Fatal("admin role not seeded")
	})
}

func TestAssignRoles(t *testing.T) {
	db := testutils.TestDB(t)
	u := testutils.CreateTestUser(t, db, "member@test.com", "password")
	space := testutils.CreateSpace(t, db, models.SpaceTypeGroup, 0, "")

	t.Run("Success - Global role is idempotent", func(t *testing.T) {
		require.NoError(t, role.AssignGlobalRole(db, u.ID, "creator"))
		require.NoError(t, role.AssignGlobalRole(db, u.ID, "creator"))

		var count int64
		require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", u.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Error - Unknown role", func(t *testing.T) {
		err := role.AssignGlobalRole(db, u.ID, "wizard")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Error - Space role name in global scope", func(t *testing.T) {
		err := role.AssignGlobalRole(db, u.ID, "space_member")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Error - Unknown user", func(t *testing.T) {
		err := role.AssignGlobalRole(db, 9999, "creator")
		assert.Equal(t, "user_not_found", apperr.CodeOf(err))
	})

	t.Run("Success - Space role then revoke", func(t *testing.T) {
		require.NoError(t, role.AssignSpaceRole(db, u.ID, space.ID, "space_member"))
		require.NoError(t, role.AssignSpaceRole(db, u.ID, space.ID, "space_poster"))

		removed, err := role.RevokeSpaceRole(db, u.ID, space.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		removed, err = role.RevokeSpaceRole(db, u.ID, space.ID)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("Error - Unknown space", func(t *testing.T) {
		err := role.AssignSpaceRole(db, u.ID, 9999, "space_member")
		assert.Equal(t, "space_not_found", apperr.CodeOf(err))
	})
}
