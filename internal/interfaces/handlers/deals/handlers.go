package deals

import (
	"errors"

	dealsvc "carimport-backend/internal/application/deals"
	"carimport-backend/internal/application/fetch"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *dealsvc.Service
}

// GET /api/v1/deals
func (h *Handlers) List(c *fiber.Ctx) error {
	out, err := h.Service.List(c.UserContext())
	if err != nil {
		return response.Internal(c)
	}
	return response.Success(c, "Deals fetched successfully", out, nil)
}

// POST /api/v1/deals
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in dealsvc.Input
	if err := c.BodyParser(&in); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	deal, err := h.Service.Create(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, dealsvc.ErrInvalidDeal) {
			return response.BadRequest(c, err.Error())
		}
		return response.Internal(c)
	}
	return response.SuccessCreated(c, "Deal created successfully", deal, nil)
}

// GET /api/v1/deals/:id/results
func (h *Handlers) Results(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid deal id format")
	}
	deal, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return dealError(c, err)
	}
	results, err := h.Service.Results(c.UserContext(), id)
	if err != nil {
		return dealError(c, err)
	}
	return response.Success(c, "Deal results fetched successfully", fiber.Map{"deal": deal, "results": results}, nil)
}

// POST /api/v1/deals/:id/search
func (h *Handlers) Search(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid deal id format")
	}
	res, err := h.Service.Search(c.UserContext(), id)
	if err != nil {
		return dealError(c, err)
	}
	return response.Success(c, "Deal search finished", res, nil)
}

// POST /api/v1/deals/:id/pin {listing_id}
func (h *Handlers) Pin(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid deal id format")
	}
	var body struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "listing_id is required")
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.BadRequest(c, "listing_id is required")
	}
	pinned, err := h.Service.TogglePin(c.UserContext(), id, listingID)
	if err != nil {
		return dealError(c, err)
	}
	return response.Success(c, "Pins updated", fiber.Map{"pinned_listing_ids": pinned}, nil)
}

// DELETE /api/v1/deals/:id archives the deal.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid deal id format")
	}
	if err := h.Service.Archive(c.UserContext(), id); err != nil {
		return dealError(c, err)
	}
	return response.Success(c, "Deal archived", fiber.Map{"id": id}, nil)
}

func dealError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, dealsvc.ErrDealNotFound):
		return response.NotFound(c, "Deal not found")
	case errors.Is(err, fetch.ErrMissingCredentials), errors.Is(err, scrape.ErrNoFetcher):
		return response.Error(c, "Scraping is not configured", fiber.StatusServiceUnavailable, nil)
	case errors.Is(err, fetch.ErrFetchBlocked):
		return response.Error(c, err.Error(), fiber.StatusBadGateway, nil)
	default:
		return response.Internal(c)
	}
}
