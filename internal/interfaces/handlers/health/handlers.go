package health

import (
	healthsvc "carimport-backend/internal/application/health"
	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const errorLogLimit = 50

type Handlers struct {
	Collector      *healthsvc.Collector
	HealthAdminKey string
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	if err := h.Collector.Reset(c.UserContext()); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns health data as JSON.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.Collector.Collect(c.UserContext())
	return c.JSON(fiber.Map{
		"service":      "carimport-api",
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors returns the latest entries of the 5xx error log.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Collector.RecentErrors(c.UserContext(), errorLogLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	return c.JSON(entries)
}

func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	html, err := healthsvc.RenderDashboard(h.Collector.Collect(c.UserContext()))
	if err != nil {
		return err
	}
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(html)
}
