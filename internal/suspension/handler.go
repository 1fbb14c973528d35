package suspension

import (
	"time"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc   *Service
	authz Authorizer
}

func NewHandler(svc *Service, authz Authorizer) *Handler {
	return &Handler{svc: svc, authz: authz}
}

type SuspendRequest struct {
	UserID     uint                    `json:"user_id"`
	Kind       models.SuspensionKind   `json:"kind"`
	TargetType models.SuspensionTarget `json:"target_type"`
	TargetID   uint                    `json:"target_id"`
	StartsAt   *time.Time              `json:"starts_at,omitempty"`
	EndsAt     *time.Time              `json:"ends_at,omitempty"`
	Reason     string                  `json:"reason"`
}

func (h *Handler) SuspendHandler(c *fiber.Ctx) error {
	actorID := c.Locals("user_id").(uint)

	var body SuspendRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.Kind == "" {
		body.Kind = models.SuspensionPosting
	}
	if body.TargetType == "" {
		body.TargetType = models.SuspensionTargetSite
	}

	row, err := h.svc.Suspend(c.UserContext(), actorID, SuspendInput{
		UserID:     body.UserID,
		Kind:       body.Kind,
		TargetType: body.TargetType,
		TargetID:   body.TargetID,
		StartsAt:   body.StartsAt,
		EndsAt:     body.EndsAt,
		Reason:     body.Reason,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, row, "Suspension created successfully")
}

func (h *Handler) LiftHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid suspension ID", nil)
	}
	actorID := c.Locals("user_id").(uint)

	row, err := h.svc.Lift(c.UserContext(), actorID, uint(id))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, row, "Suspension lifted")
}

// ListActiveHandler shows a user's active suspensions to that user or to a
// site moderator.
func (h *Handler) ListActiveHandler(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("user_id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID", nil)
	}
	actorID := c.Locals("user_id").(uint)

	if uint(userID) != actorID && !h.authz.Can(c.UserContext(), actorID, permission.ModerationSuspend, permission.Scope{}) {
		return response.Forbidden(c, "You don't have permission to view these suspensions")
	}

	rows, err := h.svc.ListActive(c.UserContext(), uint(userID))
	if err != nil {
		return response.InternalError(c, "Failed to fetch suspensions")
	}

	return response.SuccessWithMeta(c, rows, &response.Meta{Total: int64(len(rows))}, "Suspensions retrieved successfully")
}
