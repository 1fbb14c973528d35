package middleware

import (
	"context"
	"strconv"

	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Authorizer interface {
	Checker(ctx context.Context, userID uint) (*permission.Checker, error)
	Can(ctx context.Context, userID uint, p string, scope permission.Scope) bool
}

const checkerLocal = "checker"

// PermissionProtected allows the request through when the authenticated user
// holds p. A :space_id route param, when present, scopes the check.
func PermissionProtected(authz Authorizer, p string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return response.Unauthorized(c, "Unauthorized")
		}

		checker, err := RequestChecker(c, authz)
		if err != nil {
			return response.InternalError(c, "Failed to resolve permissions")
		}

		var spaceID uint
		if raw := c.Params("space_id"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return response.BadRequest(c, "Invalid space ID", nil)
			}
			spaceID = uint(id)
		}

		if !authz.Can(c.UserContext(), userID, p, permission.Scope{SpaceID: spaceID, Checker: checker}) {
			return response.Forbidden(c, "You don't have permission to perform this action")
		}

		return c.Next()
	}
}

// RequestChecker returns the checker for the authenticated user, resolving it
// at most once per request.
func RequestChecker(c *fiber.Ctx, authz Authorizer) (*permission.Checker, error) {
	if checker, ok := c.Locals(checkerLocal).(*permission.Checker); ok {
		return checker, nil
	}
	userID, _ := c.Locals("user_id").(uint)
	checker, err := authz.Checker(c.UserContext(), userID)
	if err != nil {
		return nil, err
	}
	c.Locals(checkerLocal, checker)
	return checker, nil
}
