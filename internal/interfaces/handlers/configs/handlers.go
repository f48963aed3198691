package configs

import (
	"errors"

	cfgsvc "carimport-backend/internal/application/configs"
	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *cfgsvc.Service
}

// GET /api/v1/configs
func (h *Handlers) List(c *fiber.Ctx) error {
	out, err := h.Service.List(c.UserContext())
	if err != nil {
		return response.Internal(c)
	}
	return response.Success(c, "Search configs fetched successfully", out, nil)
}

// POST /api/v1/configs
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in cfgsvc.Input
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	cfg, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, cfgsvc.ErrInvalidConfig) {
			return response.BadRequest(c, err.Error())
		}
		return response.Internal(c)
	}
	return response.SuccessCreated(c, "Search config created successfully", cfg, nil)
}

// PATCH /api/v1/configs/:id {is_active}
func (h *Handlers) SetActive(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid config id format")
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&body); err != nil || body.IsActive == nil {
		return response.BadRequest(c, "is_active is required")
	}
	cfg, err := h.Service.SetActive(c.UserContext(), id, *body.IsActive)
	if err != nil {
		return configError(c, err)
	}
	return response.Success(c, "Search config updated successfully", cfg, nil)
}

// DELETE /api/v1/configs/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid config id format")
	}
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return configError(c, err)
	}
	return response.Success(c, "Search config deleted successfully", fiber.Map{"id": id}, nil)
}

func configError(c *fiber.Ctx, err error) error {
	if errors.Is(err, cfgsvc.ErrConfigNotFound) {
		return response.NotFound(c, "Search config not found")
	}
	return response.Internal(c)
}
