package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"carimport-backend/internal/application/configs"
	"carimport-backend/internal/application/listings"
	"carimport-backend/internal/application/scoring"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct {
	byConfig map[string][]domain.RawListing
	fail     map[string]error
	calls    []scrape.RunOptions
}

func (s *stubScraper) Run(ctx context.Context, cfg domain.SearchConfig, opts scrape.RunOptions) (*scrape.RunResult, error) {
	s.calls = append(s.calls, opts)
	if err := s.fail[cfg.Name]; err != nil {
		return nil, err
	}
	return &scrape.RunResult{Listings: s.byConfig[cfg.Name], PagesScraped: 1, Errors: []string{}}, nil
}

type stubBenchmarks struct {
	rate float64
	n    int
	err  error
}

func (b *stubBenchmarks) Recompute(ctx context.Context, eurChf float64) (int, error) {
	b.rate = eurChf
	return b.n, b.err
}

type stubScorer struct {
	seen   []string
	skipAI []bool
	fail   int
}

func (s *stubScorer) ScoreBatch(ctx context.Context, ls []domain.Listing, skipAI bool) scoring.BatchResult {
	for _, l := range ls {
		s.seen = append(s.seen, l.ExternalID)
	}
	s.skipAI = append(s.skipAI, skipAI)
	res := scoring.BatchResult{Total: len(ls), Scored: len(ls) - s.fail, Failed: s.fail, Errors: []string{}}
	for i := 0; i < s.fail; i++ {
		res.Errors = append(res.Errors, "boom")
	}
	return res
}

type stubAlerts struct {
	calls int
	err   error
}

func (a *stubAlerts) NotifyTopDeals(ctx context.Context) (int, error) {
	a.calls++
	if a.err != nil {
		return 0, a.err
	}
	return 2, nil
}

type fixedRate float64

func (r fixedRate) Rate(ctx context.Context) float64 { return float64(r) }

type fixture struct {
	runner  *Runner
	configs *configs.Service
	store   *listings.Service
	scraper *stubScraper
	bench   *stubBenchmarks
	scorer  *stubScorer
	mr      *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		configs: &configs.Service{DB: db},
		store:   &listings.Service{DB: db},
		scraper: &stubScraper{byConfig: map[string][]domain.RawListing{}, fail: map[string]error{}},
		bench:   &stubBenchmarks{n: 2},
		scorer:  &stubScorer{},
		mr:      mr,
	}
	f.runner = &Runner{
		Configs:      f.configs,
		Listings:     f.store,
		Scraper:      f.scraper,
		Benchmarks:   f.bench,
		Scorer:       f.scorer,
		Rates:        fixedRate(0.95),
		Redis:        rdb,
		MaxPages:     7,
		CronMaxPages: 3,
		Now:          func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	}
	return f
}

func raw(id string) domain.RawListing {
	return domain.RawListing{ExternalID: id, Title: "Porsche 911 Carrera", PriceEur: 90000, ListingURL: "https://example.test/" + id}
}

func (f *fixture) config(t *testing.T, name string) *domain.SearchConfig {
	t.Helper()
	cfg, err := f.configs.Create(context.Background(), configs.Input{Name: name, Brands: []string{"Porsche"}})
	require.NoError(t, err)
	return cfg
}

func TestScrape_AllActiveConfigs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.config(t, "a")
	f.config(t, "b")
	f.scraper.byConfig["a"] = []domain.RawListing{raw("1"), raw("2")}
	f.scraper.byConfig["b"] = []domain.RawListing{raw("2"), raw("3")}

	res, err := f.runner.Scrape(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalConfigs)
	assert.Equal(t, 4, res.TotalFound)
	assert.Equal(t, 4, res.TotalUpserted)
	require.Len(t, res.Results, 2)
	assert.Equal(t, 2, res.Results[0].New)
	assert.Equal(t, 1, res.Results[1].New)
	assert.Equal(t, 1, res.Results[1].Updated)

	require.Len(t, f.scraper.calls, 2)
	assert.Equal(t, 7, f.scraper.calls[0].MaxPages)
	assert.True(t, f.scraper.calls[1].KnownIDs["2"])

	st, err := f.runner.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, res.RunID, st.LastRun.RunID)
	assert.Equal(t, "scrape", st.LastRun.Kind)
	assert.Equal(t, 3, st.LastRun.New)
	assert.EqualValues(t, 1, st.RunsTotal)
	assert.EqualValues(t, 4, st.ScrapedTotal)
}

func TestScrape_SingleConfigAndFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cfg := f.config(t, "a")
	f.config(t, "b")
	f.scraper.fail["a"] = errors.New("page 1 blocked")

	res, err := f.runner.Scrape(ctx, &cfg.ID)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "page 1 blocked", res.Results[0].Error)

	st, err := f.runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.LastRun.Errors)
	assert.Equal(t, []string{"Scrape a: page 1 blocked"}, st.LastRun.ErrorSample)

	missing := uuid.New()
	_, err = f.runner.Scrape(ctx, &missing)
	assert.ErrorIs(t, err, configs.ErrConfigNotFound)
}

func TestScore_RecomputesThenScoresUnscored(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.store.UpsertListing(ctx, raw("a"), nil)
	require.NoError(t, err)
	_, err = f.store.UpsertListing(ctx, raw("b"), nil)
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertScore(ctx, &domain.Score{ListingID: a.ID}))

	res, err := f.runner.Score(ctx, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.95, f.bench.rate, 1e-9)
	assert.Equal(t, 2, res.BenchmarksUpdated)
	assert.Equal(t, 1, res.TotalUnscored)
	assert.Equal(t, 1, res.Scored)
	assert.Equal(t, []string{"b"}, f.scorer.seen)
	assert.Equal(t, []bool{true}, f.scorer.skipAI)
}

func TestScore_BenchmarkFailure(t *testing.T) {
	f := setup(t)
	f.bench.err = errors.New("db down")
	_, err := f.runner.Score(context.Background(), false)
	assert.EqualError(t, err, "db down")
}

func TestCron(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.config(t, "a")
	f.scraper.byConfig["a"] = []domain.RawListing{raw("1"), raw("2"), {Title: "no id"}}
	f.scorer.fail = 1

	res, err := f.runner.Cron(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Configs)
	assert.Equal(t, 3, res.TotalListings)
	assert.Equal(t, 2, res.TotalUpserted)
	assert.Equal(t, 2, res.New)
	assert.Equal(t, 2, res.BenchmarksUpdated)
	assert.Equal(t, 1, res.Scored)
	assert.Equal(t, []bool{false}, f.scorer.skipAI)
	assert.Equal(t, 3, f.scraper.calls[0].MaxPages)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Upsert")
	assert.Equal(t, "Score boom", res.Errors[1])

	st, err := f.runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cron", st.LastRun.Kind)
	assert.Equal(t, 2, st.LastRun.Errors)
}

func TestCron_SendsAlerts(t *testing.T) {
	f := setup(t)
	alerts := &stubAlerts{}
	f.runner.Alerts = alerts
	f.config(t, "a")
	f.scraper.byConfig["a"] = []domain.RawListing{raw("1")}

	res, err := f.runner.Cron(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, alerts.calls)
	assert.Equal(t, 2, res.Alerted)
	assert.Empty(t, res.Errors)

	alerts.err = errors.New("smtp down")
	res, err = f.runner.Cron(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Alerted)
	assert.Equal(t, []string{"Alerts: smtp down"}, res.Errors)
}

func TestStatus_WithoutRedis(t *testing.T) {
	r := &Runner{}
	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.LastRun)
	assert.Zero(t, st.RunsTotal)
}
