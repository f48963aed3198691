package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"carimport-backend/internal/application/configs"
	"carimport-backend/internal/application/enrich"
	"carimport-backend/internal/application/fetch"
	"carimport-backend/internal/application/listings"
	pipesvc "carimport-backend/internal/application/pipeline"
	"carimport-backend/internal/application/scoring"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubRunner struct {
	configID  *uuid.UUID
	skipAI    *bool
	scrapeErr error
	cronCalls int
}

func (r *stubRunner) Scrape(ctx context.Context, configID *uuid.UUID) (*pipesvc.ScrapeResult, error) {
	r.configID = configID
	if r.scrapeErr != nil {
		return nil, r.scrapeErr
	}
	return &pipesvc.ScrapeResult{RunID: "run-1", Results: []pipesvc.ConfigResult{}, TotalConfigs: 1, TotalFound: 4}, nil
}

func (r *stubRunner) Score(ctx context.Context, skipAI bool) (*pipesvc.ScoreResult, error) {
	r.skipAI = &skipAI
	return &pipesvc.ScoreResult{RunID: "run-2", Scored: 3}, nil
}

func (r *stubRunner) Cron(ctx context.Context) (*pipesvc.CronResult, error) {
	r.cronCalls++
	return &pipesvc.CronResult{RunID: "run-3", Errors: []string{}}, nil
}

func (r *stubRunner) Status(ctx context.Context) (*pipesvc.Status, error) {
	return &pipesvc.Status{RunsTotal: 7}, nil
}

type stubEnricher struct{ err error }

func (e stubEnricher) Run(ctx context.Context) (*enrich.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &enrich.Result{Total: 2, Enriched: 2, Samples: []string{}}, nil
}

type stubScorer struct {
	scored   []string
	analyzed []uuid.UUID
}

func (s *stubScorer) ScoreListing(ctx context.Context, l *domain.Listing, skipAI bool) (*domain.Score, error) {
	s.scored = append(s.scored, l.ExternalID)
	return &domain.Score{ListingID: l.ID, CombinedScore: 55}, nil
}

func (s *stubScorer) Analyze(ctx context.Context, id uuid.UUID) (*scoring.Analysis, error) {
	s.analyzed = append(s.analyzed, id)
	a := scoring.PendingAnalysis()
	return &a, nil
}

type stubListings map[uuid.UUID]domain.Listing

func (s stubListings) GetWithScore(ctx context.Context, id uuid.UUID) (*domain.ListingWithScore, error) {
	l, ok := s[id]
	if !ok {
		return nil, listings.ErrListingNotFound
	}
	return &domain.ListingWithScore{Listing: l}, nil
}

type fixture struct {
	app      *fiber.App
	runner   *stubRunner
	scorer   *stubScorer
	listing  domain.Listing
	enricher *stubEnricher
}

func setup(t *testing.T) *fixture {
	hash, err := bcrypt.GenerateFromPassword([]byte("cron-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	listing := domain.Listing{ID: uuid.New(), ExternalID: "123"}
	f := &fixture{
		runner:   &stubRunner{},
		scorer:   &stubScorer{},
		listing:  listing,
		enricher: &stubEnricher{},
	}
	h := &Handlers{
		Runner:   f.runner,
		Enricher: f.enricher,
		Scorer:   f.scorer,
		Listings: stubListings{listing.ID: listing},
	}
	f.app = fiber.New()
	f.app.Post("/scrape", h.Scrape)
	f.app.Post("/enrich", h.Enrich)
	f.app.Post("/score", h.Score)
	f.app.Post("/analyze", h.Analyze)
	f.app.Get("/cron", middleware.CronSecret(string(hash)), h.Cron)
	f.app.Get("/pipeline/status", h.Status)
	return f
}

func (f *fixture) do(t *testing.T, method, url string, body interface{}, header map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestScrape(t *testing.T) {
	f := setup(t)
	code, out := f.do(t, "POST", "/scrape", nil, nil)
	require.Equal(t, 200, code)
	assert.Nil(t, f.runner.configID)
	assert.EqualValues(t, 4, out["data"].(map[string]interface{})["total_found"])

	id := uuid.New()
	code, _ = f.do(t, "POST", "/scrape", map[string]string{"config_id": id.String()}, nil)
	require.Equal(t, 200, code)
	require.NotNil(t, f.runner.configID)
	assert.Equal(t, id, *f.runner.configID)

	code, _ = f.do(t, "POST", "/scrape", map[string]string{"config_id": "x"}, nil)
	assert.Equal(t, 400, code)

	f.runner.scrapeErr = configs.ErrConfigNotFound
	code, _ = f.do(t, "POST", "/scrape", map[string]string{"config_id": id.String()}, nil)
	assert.Equal(t, 404, code)
}

func TestEnrich(t *testing.T) {
	f := setup(t)
	code, out := f.do(t, "POST", "/enrich", nil, nil)
	require.Equal(t, 200, code)
	assert.EqualValues(t, 2, out["data"].(map[string]interface{})["enriched"])

	f.enricher.err = fetch.ErrMissingCredentials
	code, _ = f.do(t, "POST", "/enrich", nil, nil)
	assert.Equal(t, 503, code)

	f.enricher.err = errors.New("db down")
	code, out = f.do(t, "POST", "/enrich", nil, nil)
	assert.Equal(t, 500, code)
	assert.Equal(t, "db down", out["error"].(map[string]interface{})["message"])
}

func TestScore_BulkAndSingle(t *testing.T) {
	f := setup(t)
	code, _ := f.do(t, "POST", "/score", map[string]interface{}{"skip_ai": true}, nil)
	require.Equal(t, 200, code)
	require.NotNil(t, f.runner.skipAI)
	assert.True(t, *f.runner.skipAI)

	code, out := f.do(t, "POST", "/score", map[string]interface{}{"listing_id": f.listing.ID.String()}, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, []string{"123"}, f.scorer.scored)
	assert.EqualValues(t, 55, out["data"].(map[string]interface{})["combined_score"])

	code, _ = f.do(t, "POST", "/score", map[string]interface{}{"listing_id": uuid.NewString()}, nil)
	assert.Equal(t, 404, code)
}

func TestAnalyze(t *testing.T) {
	f := setup(t)
	code, out := f.do(t, "POST", "/analyze", map[string]interface{}{"listing_id": f.listing.ID.String()}, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, []uuid.UUID{f.listing.ID}, f.scorer.analyzed)
	assert.EqualValues(t, 50, out["data"].(map[string]interface{})["score"])

	code, _ = f.do(t, "POST", "/analyze", nil, nil)
	assert.Equal(t, 400, code)
}

func TestCron_RequiresSecret(t *testing.T) {
	f := setup(t)
	code, _ := f.do(t, "GET", "/cron", nil, nil)
	assert.Equal(t, 401, code)
	assert.Zero(t, f.runner.cronCalls)

	code, out := f.do(t, "GET", "/cron", nil, map[string]string{"Authorization": "Bearer cron-secret"})
	require.Equal(t, 200, code)
	assert.Equal(t, 1, f.runner.cronCalls)
	assert.Equal(t, "run-3", out["data"].(map[string]interface{})["run_id"])
}

func TestStatus(t *testing.T) {
	f := setup(t)
	code, out := f.do(t, "GET", "/pipeline/status", nil, nil)
	require.Equal(t, 200, code)
	assert.EqualValues(t, 7, out["data"].(map[string]interface{})["runs_total"])
}
