package deals

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	dealsvc "carimport-backend/internal/application/deals"
	"carimport-backend/internal/application/listings"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/infrastructure/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct {
	listings []domain.RawListing
	err      error
}

func (s *stubScraper) Run(ctx context.Context, cfg domain.SearchConfig, opts scrape.RunOptions) (*scrape.RunResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &scrape.RunResult{Listings: s.listings, Errors: []string{}}, nil
}

type stubScorer struct{ store *listings.Service }

func (s *stubScorer) ScoreListing(ctx context.Context, l *domain.Listing, skipAI bool) (*domain.Score, error) {
	sc := &domain.Score{
		ListingID:             l.ID,
		TotalLandedCostChf:    l.PriceEur + 10000,
		EstimatedMarginMinChf: 100000 - l.PriceEur,
	}
	return sc, s.store.UpsertScore(ctx, sc)
}

func setupDealsTest(t *testing.T) (*fiber.App, *stubScraper) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	store := &listings.Service{DB: db}
	scraper := &stubScraper{}
	h := &Handlers{Service: &dealsvc.Service{
		DB:       db,
		Listings: store,
		Scraper:  scraper,
		Scorer:   &stubScorer{store: store},
	}}

	app := fiber.New()
	app.Get("/deals", h.List)
	app.Post("/deals", h.Create)
	app.Get("/deals/:id/results", h.Results)
	app.Post("/deals/:id/search", h.Search)
	app.Post("/deals/:id/pin", h.Pin)
	app.Delete("/deals/:id", h.Delete)
	return app, scraper
}

func do(t *testing.T, app *fiber.App, method, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func createDeal(t *testing.T, app *fiber.App) string {
	t.Helper()
	code, out := do(t, app, "POST", "/deals", map[string]interface{}{
		"name":       "Weekend car",
		"budget_chf": 80000,
		"brands":     []string{"Porsche"},
	})
	require.Equal(t, 201, code)
	return out["data"].(map[string]interface{})["id"].(string)
}

func TestCreateAndList(t *testing.T) {
	app, _ := setupDealsTest(t)
	createDeal(t, app)

	code, out := do(t, app, "GET", "/deals", nil)
	assert.Equal(t, 200, code)
	data := out["data"].([]interface{})
	require.Len(t, data, 1)
	assert.EqualValues(t, 80000, data[0].(map[string]interface{})["budget_chf"])

	code, out = do(t, app, "POST", "/deals", map[string]interface{}{"name": "no budget"})
	assert.Equal(t, 400, code)
	assert.Equal(t, "error", out["status"])
}

func TestSearchThenResults(t *testing.T) {
	app, scraper := setupDealsTest(t)
	id := createDeal(t, app)
	scraper.listings = []domain.RawListing{
		{ExternalID: "fits", Title: "Porsche 911", PriceEur: 60000, ListingURL: "https://example.test/fits"},
		{ExternalID: "over", Title: "Porsche 911", PriceEur: 75000, ListingURL: "https://example.test/over"},
	}

	code, out := do(t, app, "POST", "/deals/"+id+"/search", nil)
	require.Equal(t, 200, code)
	res := out["data"].(map[string]interface{})
	assert.EqualValues(t, 2, res["scraped"])
	assert.EqualValues(t, 1, res["top_results"])

	code, out = do(t, app, "GET", "/deals/"+id+"/results", nil)
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	results := data["results"].([]interface{})
	require.Len(t, results, 1)
	listing := results[0].(map[string]interface{})["listing"].(map[string]interface{})
	assert.Equal(t, "fits", listing["external_id"])
	assert.EqualValues(t, 1, data["deal"].(map[string]interface{})["last_result_count"])
}

func TestSearch_NotConfigured(t *testing.T) {
	app, scraper := setupDealsTest(t)
	id := createDeal(t, app)
	scraper.err = scrape.ErrNoFetcher

	code, _ := do(t, app, "POST", "/deals/"+id+"/search", nil)
	assert.Equal(t, 503, code)
}

func TestPinAndArchive(t *testing.T) {
	app, _ := setupDealsTest(t)
	id := createDeal(t, app)
	listingID := uuid.NewString()

	code, out := do(t, app, "POST", "/deals/"+id+"/pin", map[string]interface{}{"listing_id": listingID})
	require.Equal(t, 200, code)
	pinned := out["data"].(map[string]interface{})["pinned_listing_ids"].([]interface{})
	assert.Equal(t, []interface{}{listingID}, pinned)

	code, _ = do(t, app, "POST", "/deals/"+id+"/pin", map[string]interface{}{"listing_id": "nope"})
	assert.Equal(t, 400, code)

	code, _ = do(t, app, "DELETE", "/deals/"+id, nil)
	assert.Equal(t, 200, code)
	code, out = do(t, app, "GET", "/deals", nil)
	assert.Equal(t, 200, code)
	assert.Empty(t, out["data"])
}

func TestNotFound(t *testing.T) {
	app, _ := setupDealsTest(t)
	missing := uuid.NewString()
	for _, tc := range []struct{ method, url string }{
		{"GET", "/deals/" + missing + "/results"},
		{"POST", "/deals/" + missing + "/search"},
		{"DELETE", "/deals/" + missing},
	} {
		code, _ := do(t, app, tc.method, tc.url, nil)
		assert.Equal(t, 404, code, tc.url)
	}
	code, _ := do(t, app, "GET", "/deals/bad/results", nil)
	assert.Equal(t, 400, code)
}
