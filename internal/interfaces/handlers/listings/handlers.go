package listings

import (
	"errors"
	"strconv"

	listsvc "carimport-backend/internal/application/listings"
	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *listsvc.Service
}

// GET /api/v1/listings?page=&limit=&sort_by=&sort_order=&min_score=&max_price=&brand=&fuel_type=&include_inactive=
func (h *Handlers) List(c *fiber.Ctx) error {
	f := listsvc.Filter{
		Page:       c.QueryInt("page", 1),
		Limit:      c.QueryInt("limit", 0),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
		Brand:      c.Query("brand"),
		FuelType:   c.Query("fuel_type"),
		OnlyActive: !c.QueryBool("include_inactive", false),
	}
	if v := c.Query("min_score"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return response.BadRequest(c, "min_score must be a number")
		}
		f.MinScore = &n
	}
	if v := c.Query("max_price"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return response.BadRequest(c, "max_price must be an integer")
		}
		f.MaxPrice = &n
	}

	page, err := h.Service.List(c.UserContext(), f)
	if err != nil {
		return response.Internal(c)
	}
	return response.SuccessPage(c, "Listings fetched successfully", page.Listings, response.PageMeta{
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	})
}

// GET /api/v1/listings/top?limit=
func (h *Handlers) Top(c *fiber.Ctx) error {
	items, err := h.Service.TopDeals(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return response.Internal(c)
	}
	return response.Success(c, "Top deals fetched successfully", items, nil)
}

// GET /api/v1/listings/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid listing id format")
	}
	item, err := h.Service.GetWithScore(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, listsvc.ErrListingNotFound) {
			return response.NotFound(c, "Listing not found")
		}
		return response.Internal(c)
	}
	return response.Success(c, "Listing fetched successfully", item, nil)
}
