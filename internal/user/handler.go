package user

import (
	"errors"

	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) CreateUserHandler(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if body.Email == "" || body.Password == "" || body.Name == "" {
		return response.ValidationError(c, map[string]string{
			"email":    "email is required",
			"password": "password is required",
			"name":     "name is required",
		})
	}

	u, err := CreateUser(h.db, body.Name, body.Email, body.Password)
	if errors.Is(err, ErrEmailTaken) {
		return response.Conflict(c, "User with this email already exists")
	}
	if err != nil {
		return response.InternalError(c, "Failed to create user")
	}

	return response.Created(c, u, "User created successfully")
}

func (h *Handler) ListUsersHandler(c *fiber.Ctx) error {
	users, err := ListUsers(h.db)
	if err != nil {
		return response.InternalError(c, "Failed to fetch users")
	}

	return response.Success(c, users, "Users retrieved successfully")
}

func (h *Handler) GetUserHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	u, err := GetUser(h.db, uint(id))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, u, "User retrieved successfully")
}
