package auth

import (
	"context"
	"strings"

	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/cnm4us/aws-sub000/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// BanChecker reports whether a user is currently banned site-wide.
type BanChecker interface {
	IsBanned(ctx context.Context, userID uint) bool
}

// JWTProtected authenticates the bearer token and stores the caller in
// c.Locals("user_id"). Banned users are turned away even with a valid token.
// A nil bans skips the ban check.
func JWTProtected(bans BanChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return response.Error(c, fiber.StatusUnauthorized, "INVALID_TOKEN_FORMAT", "Invalid token format", nil)
		}

		userID, err := utils.ParseJWT(token)
		if err != nil {
			return response.Error(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
		}

		if bans != nil && bans.IsBanned(c.UserContext(), userID) {
			return response.Error(c, fiber.StatusForbidden, "ACCOUNT_BANNED", "Account is banned", nil)
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
