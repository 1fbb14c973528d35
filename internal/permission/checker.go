package permission

import (
	"context"
	"fmt"

	"github.com/cnm4us/aws-sub000/internal/models"
	"gorm.io/gorm"
)

// Checker is a read-only snapshot of one user's grants. Reuse it across
// several Can calls within one logical operation to avoid repeated lookups.
type Checker struct {
	userID   uint
	global   tokenSet
	spaces   map[uint]tokenSet
	personal map[uint]struct{}
}

// NewChecker builds a snapshot from already-loaded grants.
func NewChecker(userID uint, global []string, spaces map[uint][]string, personalSpaces []uint) *Checker {
	c := &Checker{
		userID:   userID,
		global:   newTokenSet(global...),
		spaces:   make(map[uint]tokenSet, len(spaces)),
		personal: make(map[uint]struct{}, len(personalSpaces)),
	}
	for spaceID, perms := range spaces {
		c.spaces[spaceID] = newTokenSet(perms...)
	}
	for _, id := range personalSpaces {
		c.personal[id] = struct{}{}
	}
	return c
}

func (c *Checker) UserID() uint { return c.userID }

func (c *Checker) HasGlobalPermission(p string) bool {
	return c.global.has(p)
}

func (c *Checker) HasSpacePermission(spaceID uint, p string) bool {
	perms, ok := c.spaces[spaceID]
	if !ok {
		return false
	}
	return perms.has(SpaceWildcard) || perms.has(p)
}

// OwnsPersonalSpace reports whether spaceID is this user's personal space.
func (c *Checker) OwnsPersonalSpace(spaceID uint) bool {
	_, ok := c.personal[spaceID]
	return ok
}

func (c *Checker) hasAnySpaceAuthority() bool {
	for _, p := range anySpaceAuthority {
		if c.global.has(p) {
			return true
		}
	}
	return false
}

// Resolver loads Checkers from the role tables.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

type spaceGrant struct {
	SpaceID uint
	Name    string
}

// Resolve loads global and per-space grants for userID. A user with no
// role rows gets an empty snapshot, not an error.
func (r *Resolver) Resolve(ctx context.Context, userID uint) (*Checker, error) {
	db := r.db.WithContext(ctx)

	var global []string
	err := db.Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("JOIN permissions ON permissions.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.scope = ?", userID, models.RoleScopeGlobal).
		Distinct().
		Pluck("permissions.name", &global).Error
	if err != nil {
		return nil, fmt.Errorf("load global permissions: %w", err)
	}

	var grants []spaceGrant
	err = db.Table("user_space_roles").
		Select("user_space_roles.space_id AS space_id, permissions.name AS name").
		Joins("JOIN roles ON roles.id = user_space_roles.role_id").
		Joins("JOIN permissions ON permissions.role_id = roles.id").
		Where("user_space_roles.user_id = ? AND roles.scope = ?", userID, models.RoleScopeSpace).
		Scan(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("load space permissions: %w", err)
	}

	var personal []uint
	err = db.Model(&models.Space{}).
		Where("owner_user_id = ? AND type = ?", userID, models.SpaceTypePersonal).
		Pluck("id", &personal).Error
	if err != nil {
		return nil, fmt.Errorf("load personal spaces: %w", err)
	}

	spaces := make(map[uint][]string)
	for _, g := range grants {
		spaces[g.SpaceID] = append(spaces[g.SpaceID], g.Name)
	}

	return NewChecker(userID, global, spaces, personal), nil
}
