package calculator

import (
	"context"

	"carimport-backend/internal/application/exchange"
	"carimport-backend/internal/application/importcost"
	"carimport-backend/internal/application/resale"
	"carimport-backend/internal/application/scoring"
	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type RateQuoter interface {
	Quote(ctx context.Context) exchange.Quote
}

type Handlers struct {
	Rates  RateQuoter
	Params importcost.Params
}

// GET /api/v1/exchange-rate
func (h *Handlers) ExchangeRate(c *fiber.Ctx) error {
	q := h.Rates.Quote(c.UserContext())
	return response.Success(c, "Exchange rate fetched successfully", fiber.Map{
		"eur_chf": q.Rate,
		"source":  q.Source,
	}, nil)
}

type importCostRequest struct {
	PriceEur      int     `json:"price_eur"`
	VatDeductible bool    `json:"vat_deductible"`
	SourceVatRate float64 `json:"source_vat_rate"`
	TransportChf  float64 `json:"transport_chf"`
	WeightKg      float64 `json:"weight_kg"`
	EurChf        float64 `json:"eur_chf"`
	// Optional vehicle description; when Title is set the response also
	// carries a CH resale bracket and margin.
	Title     string `json:"title"`
	Year      int    `json:"year"`
	MileageKm int    `json:"mileage_km"`
}

// POST /api/v1/import-cost
func (h *Handlers) ImportCost(c *fiber.Ctx) error {
	var body importCostRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if body.PriceEur <= 0 {
		return response.BadRequest(c, "price_eur must be positive")
	}
	if body.SourceVatRate < 0 || body.SourceVatRate >= 1 {
		return response.BadRequest(c, "source_vat_rate must be a fraction between 0 and 1")
	}

	quote := exchange.Quote{Rate: body.EurChf, Source: "request"}
	if quote.Rate <= 0 {
		quote = h.Rates.Quote(c.UserContext())
	}
	breakdown := importcost.Calculate(importcost.Input{
		PriceEur:      body.PriceEur,
		VatDeductible: body.VatDeductible,
		EurChf:        quote.Rate,
		SourceVatRate: body.SourceVatRate,
		TransportChf:  body.TransportChf,
		WeightKg:      body.WeightKg,
	}, h.Params)

	out := fiber.Map{
		"breakdown":   breakdown,
		"eur_chf":     quote.Rate,
		"rate_source": quote.Source,
	}
	if body.Title != "" {
		bracket := resale.Estimate(resale.Input{
			VariantHint:    body.Title,
			Year:           body.Year,
			MileageKm:      body.MileageKm,
			AskingPriceChf: float64(body.PriceEur) * quote.Rate,
		})
		lo, hi := scoring.Margin(bracket, breakdown.GrandTotalChf)
		out["resale"] = bracket
		out["margin_min_chf"] = lo
		out["margin_max_chf"] = hi
	}
	return response.Success(c, "Import cost calculated", out, nil)
}
