package project

import (
	"encoding/json"
	"errors"

	"relsave/core/logger"
	"relsave/core/relsave"
	"relsave/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for projects.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the project routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/projects")
	group.Post("/", h.HandleCreateProject)
	group.Get("/:id", h.HandleGetProject)
	group.Put("/:id", h.HandleUpdateProject)
}

// HandleGetProject returns a project with its relations.
// @Summary Get Project
// @Description Get a project with its company, users and links.
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project "Project"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /projects/{id} [get]
func (h *Handler) HandleGetProject(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project id"})
	}

	p, err := h.service.Get(c.UserContext(), uint(id))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// HandleCreateProject creates a project and its relations in one save.
// @Summary Create Project
// @Description Create a project, assigning company, users and links in one transaction.
// @Tags projects
// @Accept json
// @Produce json
// @Param dry_run query bool false "Return the planned writes without saving"
// @Param input body Input true "Project and relations"
// @Success 201 {object} Result "Saved"
// @Success 200 {object} Result "Dry run plan"
// @Failure 422 {object} Result "Validation Failed"
// @Failure 404 {object} map[string]string "Related Entity Not Found"
// @Failure 409 {object} map[string]string "Constraint Violation"
// @Router /projects [post]
func (h *Handler) HandleCreateProject(c *fiber.Ctx) error {
	in, err := parseInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.service.Create(c.UserContext(), in, utils.ToBool(c.Query("dry_run")))
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, res, fiber.StatusCreated)
}

// HandleUpdateProject changes a project and its relations in one save.
// @Summary Update Project
// @Description Rename a project and reassign its relations in one transaction.
// @Tags projects
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param dry_run query bool false "Return the planned writes without saving"
// @Param input body Input true "Changes"
// @Success 200 {object} Result "Saved or dry run plan"
// @Failure 422 {object} Result "Validation Failed"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Constraint Violation"
// @Router /projects/{id} [put]
func (h *Handler) HandleUpdateProject(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project id"})
	}
	in, err := parseInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.service.Update(c.UserContext(), uint(id), in, utils.ToBool(c.Query("dry_run")))
	if err != nil {
		return h.fail(c, err)
	}
	return h.respond(c, res, fiber.StatusOK)
}

func (h *Handler) respond(c *fiber.Ctx, res *Result, saved int) error {
	switch {
	case res.Errors.Len() > 0:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
	case res.Saved:
		return c.Status(saved).JSON(res)
	default:
		return c.JSON(res)
	}
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code == fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error("Project request failed", zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), relsave.IsRelatedNotFound(err):
		return fiber.StatusNotFound
	case relsave.IsConstraintError(err):
		return fiber.StatusConflict
	case relsave.IsRequiredRelation(err),
		relsave.IsUndeclaredRelation(err),
		relsave.IsValidation(err),
		errors.Is(err, relsave.ErrInvalidValue):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// parseInput decodes the body and turns whole JSON numbers into int64 keys.
func parseInput(c *fiber.Ctx) (Input, error) {
	var in Input
	if len(c.Body()) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return in, errors.New("invalid request body")
	}
	if in.Relations != nil {
		in.Relations = utils.NormalizeJSON(in.Relations).(map[string]any)
	}
	return in, nil
}
