package pipeline

import (
	"context"
	"errors"

	"carimport-backend/internal/application/configs"
	"carimport-backend/internal/application/enrich"
	"carimport-backend/internal/application/fetch"
	"carimport-backend/internal/application/listings"
	pipesvc "carimport-backend/internal/application/pipeline"
	"carimport-backend/internal/application/scoring"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Runner interface {
	Scrape(ctx context.Context, configID *uuid.UUID) (*pipesvc.ScrapeResult, error)
	Score(ctx context.Context, skipAI bool) (*pipesvc.ScoreResult, error)
	Cron(ctx context.Context) (*pipesvc.CronResult, error)
	Status(ctx context.Context) (*pipesvc.Status, error)
}

type Enricher interface {
	Run(ctx context.Context) (*enrich.Result, error)
}

type Scorer interface {
	ScoreListing(ctx context.Context, l *domain.Listing, skipAI bool) (*domain.Score, error)
	Analyze(ctx context.Context, id uuid.UUID) (*scoring.Analysis, error)
}

type ListingReader interface {
	GetWithScore(ctx context.Context, id uuid.UUID) (*domain.ListingWithScore, error)
}

type Handlers struct {
	Runner   Runner
	Enricher Enricher
	Scorer   Scorer
	Listings ListingReader
}

// parseOptional decodes a JSON body if one was sent.
func parseOptional(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func parseID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// POST /api/v1/scrape {config_id?}
func (h *Handlers) Scrape(c *fiber.Ctx) error {
	var body struct {
		ConfigID string `json:"config_id"`
	}
	if err := parseOptional(c, &body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	configID, err := parseID(body.ConfigID)
	if err != nil {
		return response.BadRequest(c, "Invalid config_id format")
	}
	res, err := h.Runner.Scrape(c.UserContext(), configID)
	if err != nil {
		return runError(c, err)
	}
	return response.Success(c, "Scrape finished", res, nil)
}

// POST /api/v1/enrich
func (h *Handlers) Enrich(c *fiber.Ctx) error {
	res, err := h.Enricher.Run(c.UserContext())
	if err != nil {
		return runError(c, err)
	}
	return response.Success(c, "Enrichment finished", res, nil)
}

// POST /api/v1/score {listing_id?, skip_ai?}
func (h *Handlers) Score(c *fiber.Ctx) error {
	var body struct {
		ListingID string `json:"listing_id"`
		SkipAI    bool   `json:"skip_ai"`
	}
	if err := parseOptional(c, &body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	listingID, err := parseID(body.ListingID)
	if err != nil {
		return response.BadRequest(c, "Invalid listing_id format")
	}

	if listingID == nil {
		res, err := h.Runner.Score(c.UserContext(), body.SkipAI)
		if err != nil {
			return runError(c, err)
		}
		return response.Success(c, "Scoring finished", res, nil)
	}

	lws, err := h.Listings.GetWithScore(c.UserContext(), *listingID)
	if err != nil {
		return runError(c, err)
	}
	score, err := h.Scorer.ScoreListing(c.UserContext(), &lws.Listing, body.SkipAI)
	if err != nil {
		return runError(c, err)
	}
	return response.Success(c, "Listing scored", score, nil)
}

// POST /api/v1/analyze {listing_id}
func (h *Handlers) Analyze(c *fiber.Ctx) error {
	var body struct {
		ListingID string `json:"listing_id"`
	}
	if err := parseOptional(c, &body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	id, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.BadRequest(c, "listing_id is required")
	}
	a, err := h.Scorer.Analyze(c.UserContext(), id)
	if err != nil {
		return runError(c, err)
	}
	return response.Success(c, "Deep analysis finished", a, nil)
}

// GET /api/v1/cron, behind the cron secret middleware.
func (h *Handlers) Cron(c *fiber.Ctx) error {
	res, err := h.Runner.Cron(c.UserContext())
	if err != nil {
		return runError(c, err)
	}
	return response.Success(c, "Cron run finished", res, nil)
}

// GET /api/v1/pipeline/status
func (h *Handlers) Status(c *fiber.Ctx) error {
	st, err := h.Runner.Status(c.UserContext())
	if err != nil {
		return runError(c, err)
	}
	return response.Success(c, "Pipeline status fetched", st, nil)
}

func runError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, configs.ErrConfigNotFound):
		return response.NotFound(c, "Search config not found")
	case errors.Is(err, listings.ErrListingNotFound):
		return response.NotFound(c, "Listing not found")
	case errors.Is(err, fetch.ErrMissingCredentials), errors.Is(err, scrape.ErrNoFetcher):
		return response.Error(c, "Scraping is not configured", fiber.StatusServiceUnavailable, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
}
