package role

import (
	"strconv"

	"github.com/cnm4us/aws-sub000/internal/middleware"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	db    *gorm.DB
	authz middleware.Authorizer
}

func NewHandler(db *gorm.DB, authz middleware.Authorizer) *Handler {
	return &Handler{db: db, authz: authz}
}

func (h *Handler) ListRolesHandler(c *fiber.Ctx) error {
	scope := models.RoleScope(c.Query("scope"))
	if scope != "" && scope != models.RoleScopeGlobal && scope != models.RoleScopeSpace {
		return response.ValidationError(c, map[string]string{
			"scope": "scope must be global or space",
		})
	}

	roles, err := ListRoles(h.db, scope)
	if err != nil {
		return response.InternalError(c, "Failed to fetch roles")
	}

	return response.Success(c, roles, "Roles retrieved successfully")
}

// AssignGlobalRoleHandler is mounted behind the admin shortcut permission.
func (h *Handler) AssignGlobalRoleHandler(c *fiber.Ctx) error {
	var body struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.UserID == 0 || body.Role == "" {
		return response.ValidationError(c, map[string]string{
			"user_id": "user_id is required",
			"role":    "role is required",
		})
	}

	if err := AssignGlobalRole(h.db, body.UserID, body.Role); err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{"user_id": body.UserID, "role": body.Role}, "Role assigned successfully")
}

// AssignSpaceRoleHandler is mounted behind space:assign_roles.
func (h *Handler) AssignSpaceRoleHandler(c *fiber.Ctx) error {
	spaceID, err := c.ParamsInt("space_id")
	if err != nil || spaceID <= 0 {
		return response.BadRequest(c, "Invalid space ID", nil)
	}

	var body struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.UserID == 0 || body.Role == "" {
		return response.ValidationError(c, map[string]string{
			"user_id": "user_id is required",
			"role":    "role is required",
		})
	}

	if body.Role == "space_admin" && !h.canGrantSpaceAdmin(c, uint(spaceID)) {
		return response.Forbidden(c, "Only space managers can grant space_admin")
	}

	if err := AssignSpaceRole(h.db, body.UserID, uint(spaceID), body.Role); err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, fiber.Map{
		"user_id":  body.UserID,
		"space_id": spaceID,
		"role":     body.Role,
	}, "Space role assigned successfully")
}

func (h *Handler) canGrantSpaceAdmin(c *fiber.Ctx, spaceID uint) bool {
	checker, err := middleware.RequestChecker(c, h.authz)
	if err != nil {
		return false
	}
	return h.authz.Can(c.UserContext(), checker.UserID(), permission.SpaceManage, permission.Scope{SpaceID: spaceID, Checker: checker})
}

func (h *Handler) RevokeSpaceRoleHandler(c *fiber.Ctx) error {
	spaceID, err := c.ParamsInt("space_id")
	if err != nil || spaceID <= 0 {
		return response.BadRequest(c, "Invalid space ID", nil)
	}
	userID, err := strconv.ParseUint(c.Params("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	removed, err := RevokeSpaceRole(h.db, uint(userID), uint(spaceID))
	if err != nil {
		return response.InternalError(c, "Failed to revoke roles")
	}
	if removed == 0 {
		return response.NotFound(c, "Space role")
	}

	return response.NoContent(c)
}
