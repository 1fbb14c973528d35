package role

import (
	"fmt"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"gorm.io/gorm"
)

type roleDef struct {
	name        string
	scope       models.RoleScope
	description string
	permissions []string
}

var ownerVideoPermissions = []string{
	permission.VideoEditOwn,
	permission.VideoDeleteOwn,
	permission.VideoPublishOwn,
	permission.VideoUnpublishOwn,
}

var defaultRoles = []roleDef{
	{
		name:        "admin",
		scope:       models.RoleScopeGlobal,
		description: "Full access to all resources",
		permissions: append([]string{
			permission.VideoDeleteAny,
			permission.VideoApprove,
			permission.ModerationSuspend,
			permission.SiteAdmin,
		}, ownerVideoPermissions...),
	},
	{
		name:        "site_moderator",
		scope:       models.RoleScopeGlobal,
		description: "Reviews and moderates publications in every space",
		permissions: []string{
			permission.VideoApprove,
			permission.FeedModerateGlobal,
			permission.ModerationSuspend,
		},
	},
	{
		name:        "creator",
		scope:       models.RoleScopeGlobal,
		description: "Publishes and manages their own videos",
		permissions: ownerVideoPermissions,
	},
	{
		name:        "viewer",
		scope:       models.RoleScopeGlobal,
		description: "Can view content only",
	},
	{
		name:        "space_admin",
		scope:       models.RoleScopeSpace,
		description: "Holds every permission within the space",
		permissions: []string{permission.SpaceWildcard},
	},
	{
		name:        "space_moderator",
		scope:       models.RoleScopeSpace,
		description: "Reviews, publishes and unpublishes videos in the space",
		permissions: []string{
			permission.VideoReviewSpace,
			permission.VideoApproveSpace,
			permission.VideoPublishSpace,
			permission.VideoUnpublish,
			permission.VideoModerate,
			permission.CommentModerate,
			permission.CommentDeleteAny,
			permission.SpaceViewPrivate,
			permission.SpaceViewHidden,
			permission.SpaceKick,
		},
	},
	{
		name:        "space_member",
		scope:       models.RoleScopeSpace,
		description: "Posts to and views the space",
		permissions: []string{
			permission.SpacePost,
			permission.VideoPostSpace,
			permission.SpaceViewPrivate,
		},
	},
	{
		name:        "space_poster",
		scope:       models.RoleScopeSpace,
		description: "Posts to the space",
		permissions: []string{
			permission.SpacePost,
			permission.VideoPostSpace,
		},
	},
}

// SeedDefaultRoles creates the built-in roles. Existing roles are left as they are.
func SeedDefaultRoles(db *gorm.DB) error {
	for _, def := range defaultRoles {
		var count int64
		if err := db.Model(&models.Role{}).Where("name = ? AND scope = ?", def.name, def.scope).Count(&count).Error; err != nil {
			return fmt.Errorf("check role %s: %w", def.name, err)
		}
		if count > 0 {
			continue
		}
		if _, err := CreateRole(db, def.name, def.scope, def.description, def.permissions); err != nil {
			return fmt.Errorf("seed role %s: %w", def.name, err)
		}
	}
	return nil
}
