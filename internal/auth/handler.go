package auth

import (
	"errors"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	db   *gorm.DB
	bans BanChecker
}

// NewHandler builds the auth handlers. A nil bans skips the ban check at login.
func NewHandler(db *gorm.DB, bans BanChecker) *Handler {
	return &Handler{db: db, bans: bans}
}

func (h *Handler) LoginHandler(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Password == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	token, user, err := LoginUser(c.UserContext(), h.db, body.Email, body.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, ErrUserInactive):
		return response.Forbidden(c, "Account is not active")
	case err != nil:
		return response.InternalError(c, "Login failed")
	}

	if h.bans != nil && h.bans.IsBanned(c.UserContext(), user.ID) {
		return response.Error(c, fiber.StatusForbidden, "ACCOUNT_BANNED", "Account is banned", nil)
	}

	return response.Success(c, fiber.Map{
		"access_token": token,
		"user":         user,
	}, "Login successful")
}

func (h *Handler) MeHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var user models.User
	err := h.db.WithContext(c.UserContext()).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NotFound(c, "User")
	}
	if err != nil {
		return response.InternalError(c, "Failed to fetch user")
	}

	return response.Success(c, user, "User retrieved successfully")
}
