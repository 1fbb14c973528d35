package publication

import (
	"context"

	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/response"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type CreateRequest struct {
	UploadID     uint              `json:"upload_id"`
	ProductionID uint              `json:"production_id"`
	SpaceID      uint              `json:"space_id"`
	Visibility   models.Visibility `json:"visibility"`
	Distribution map[string]bool   `json:"distribution_flags"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) CreateHandler(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var body CreateRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	errs := map[string]string{}
	if body.SpaceID == 0 {
		errs["space_id"] = "space_id is required"
	}
	if (body.UploadID == 0) == (body.ProductionID == 0) {
		errs["source"] = "exactly one of upload_id or production_id is required"
	}
	if len(errs) > 0 {
		return response.ValidationError(c, errs)
	}

	var (
		pub *models.Publication
		err error
	)
	if body.ProductionID != 0 {
		pub, err = h.svc.CreateFromProduction(c.UserContext(), userID, CreateFromProductionInput{
			ProductionID: body.ProductionID,
			SpaceID:      body.SpaceID,
			Visibility:   body.Visibility,
			Distribution: body.Distribution,
		})
	} else {
		pub, err = h.svc.CreateFromUpload(c.UserContext(), userID, CreateFromUploadInput{
			UploadID:     body.UploadID,
			SpaceID:      body.SpaceID,
			Visibility:   body.Visibility,
			Distribution: body.Distribution,
		})
	}
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, pub, "Publication created successfully")
}

func (h *Handler) ApproveHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Approve, "Publication approved")
}

func (h *Handler) RejectHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Reject, "Publication rejected")
}

func (h *Handler) UnpublishHandler(c *fiber.Ctx) error {
	return h.transition(c, h.svc.Unpublish, "Publication unpublished")
}

type noteTransition func(ctx context.Context, publicationID, actorID uint, note string) (*models.Publication, error)

func (h *Handler) transition(c *fiber.Ctx, op noteTransition, message string) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid publication ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	var body NoteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return response.BadRequest(c, "Invalid request body", err.Error())
		}
	}

	pub, err := op(c.UserContext(), uint(id), userID, body.Note)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, pub, message)
}

func (h *Handler) RepublishHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid publication ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	pub, err := h.svc.Republish(c.UserContext(), uint(id), userID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, pub, "Publication republished")
}

func (h *Handler) EventsHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid publication ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	events, err := h.svc.ListEvents(c.UserContext(), uint(id), userID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMeta(c, events, &response.Meta{Total: int64(len(events))}, "Publication events retrieved successfully")
}

func (h *Handler) QueueHandler(c *fiber.Ctx) error {
	spaceID, err := c.ParamsInt("space_id")
	if err != nil || spaceID <= 0 {
		return response.BadRequest(c, "Invalid space ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	status := models.PublicationStatus(c.Query("status", string(models.StatusPending)))
	if c.Query("status") == "all" {
		status = ""
	}
	switch status {
	case "", models.StatusPending, models.StatusPublished, models.StatusRejected, models.StatusUnpublished:
	default:
		return response.ValidationError(c, map[string]string{
			"status": "status must be pending, published, rejected, unpublished or all",
		})
	}

	pubs, err := h.svc.ListForSpace(c.UserContext(), userID, uint(spaceID), status)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMeta(c, pubs, &response.Meta{Total: int64(len(pubs))}, "Publications retrieved successfully")
}

func (h *Handler) StatsHandler(c *fiber.Ctx) error {
	spaceID, err := c.ParamsInt("space_id")
	if err != nil || spaceID <= 0 {
		return response.BadRequest(c, "Invalid space ID", nil)
	}
	userID := c.Locals("user_id").(uint)

	counts, err := h.svc.StatusCounts(c.UserContext(), userID, uint(spaceID))
	if err != nil {
		return response.FromError(c, err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	return response.Success(c, fiber.Map{
		"space_id":  spaceID,
		"by_status": counts,
		"total":     total,
	}, "Publication statistics retrieved successfully")
}
