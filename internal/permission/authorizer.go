package permission

import (
	"context"

	"github.com/cnm4us/aws-sub000/internal/observ"
	"go.uber.org/zap"
)

// CheckerResolver produces a Checker for a user.
type CheckerResolver interface {
	Resolve(ctx context.Context, userID uint) (*Checker, error)
}

// SuspensionGate vetoes posting-class permissions.
type SuspensionGate interface {
	IsPostingSuspended(ctx context.Context, userID, spaceID uint) bool
}

// Scope is the optional context of a Can call. Zero IDs mean "not supplied".
type Scope struct {
	OwnerID uint
	SpaceID uint
	Checker *Checker
}

type Authorizer struct {
	resolver CheckerResolver
	gate     SuspensionGate
	logger   *zap.Logger
}

func NewAuthorizer(resolver CheckerResolver, gate SuspensionGate, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		resolver: resolver,
		gate:     gate,
		logger:   observ.OrNop(logger),
	}
}

// Checker resolves a snapshot for callers that want to thread it through
// several Can calls.
func (a *Authorizer) Checker(ctx context.Context, userID uint) (*Checker, error) {
	return a.resolver.Resolve(ctx, userID)
}

// Can answers whether userID may exercise permission p in scope. The order of
// the checks matters: the admin shortcut beats the suspension veto, and the
// suspension veto beats every role grant.
func (a *Authorizer) Can(ctx context.Context, userID uint, p string, scope Scope) bool {
	checker := scope.Checker
	if checker == nil {
		c, err := a.resolver.Resolve(ctx, userID)
		if err != nil {
			a.logger.Error("permission lookup failed, deny by default",
				zap.Uint("user_id", userID),
				zap.String("permission", p),
				zap.Error(err),
			)
			return false
		}
		checker = c
	}

	if checker.HasGlobalPermission(AdminShortcut) {
		return a.decide(userID, p, scope, true, "admin_shortcut")
	}

	if IsPostingPermission(p) && a.gate != nil && a.gate.IsPostingSuspended(ctx, userID, scope.SpaceID) {
		return a.decide(userID, p, scope, false, "posting_suspended")
	}

	if IsOwnerPermission(p) {
		if scope.OwnerID == 0 || scope.OwnerID != userID {
			return a.decide(userID, p, scope, false, "not_owner")
		}
		return a.decide(userID, p, scope, checker.HasGlobalPermission(p), "owner_global_grant")
	}

	if IsSpacePermission(p) {
		allowed, reason := evaluateSpaceRules(checker, p, scope.SpaceID)
		return a.decide(userID, p, scope, allowed, reason)
	}

	return a.decide(userID, p, scope, checker.HasGlobalPermission(p), "global_grant")
}

func (a *Authorizer) decide(userID uint, p string, scope Scope, allowed bool, reason string) bool {
	a.logger.Debug("permission evaluated",
		zap.Uint("user_id", userID),
		zap.String("permission", p),
		zap.Uint("space_id", scope.SpaceID),
		zap.Uint("owner_id", scope.OwnerID),
		zap.Bool("allowed", allowed),
		zap.String("reason", reason),
	)
	return allowed
}

type spaceRule struct {
	reason string
	when   func(c *Checker, p string, spaceID uint) bool
	allow  bool
}

// spaceRules is evaluated top to bottom; the first rule whose predicate holds
// decides.
var spaceRules = []spaceRule{
	{
		reason: "any_space_authority",
		when:   func(c *Checker, _ string, spaceID uint) bool { return spaceID == 0 && c.hasAnySpaceAuthority() },
		allow:  true,
	},
	{
		reason: "space_required",
		when:   func(_ *Checker, _ string, spaceID uint) bool { return spaceID == 0 },
		allow:  false,
	},
	{
		reason: "site_moderator",
		when: func(c *Checker, p string, _ uint) bool {
			return moderationShortcutPermissions.has(p) && c.hasAnySpaceAuthority()
		},
		allow: true,
	},
	{
		reason: "personal_space_owner",
		when:   func(c *Checker, _ string, spaceID uint) bool { return c.OwnsPersonalSpace(spaceID) },
		allow:  true,
	},
	{
		reason: "space_grant",
		when:   func(c *Checker, p string, spaceID uint) bool { return c.HasSpacePermission(spaceID, p) },
		allow:  true,
	},
}

func evaluateSpaceRules(c *Checker, p string, spaceID uint) (bool, string) {
	for _, r := range spaceRules {
		if r.when(c, p, spaceID) {
			return r.allow, r.reason
		}
	}
	return false, "space_grant_missing"
}
