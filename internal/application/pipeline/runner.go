package pipeline

import (
	"context"
	"time"

	"carimport-backend/internal/application/listings"
	"carimport-backend/internal/application/scoring"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"
	"carimport-backend/internal/pkg/errsample"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxPages     = 10
	defaultCronMaxPages = 5
)

type ConfigSource interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.SearchConfig, error)
	Active(ctx context.Context) ([]domain.SearchConfig, error)
}

type ListingStore interface {
	ExistingExternalIDs(ctx context.Context) (map[string]bool, error)
	UpsertListing(ctx context.Context, raw domain.RawListing, configID *uuid.UUID) (*listings.UpsertResult, error)
	UnscoredListings(ctx context.Context) ([]domain.Listing, error)
}

type Scraper interface {
	Run(ctx context.Context, cfg domain.SearchConfig, opts scrape.RunOptions) (*scrape.RunResult, error)
}

type BenchmarkRecomputer interface {
	Recompute(ctx context.Context, eurChf float64) (int, error)
}

// DigestNotifier sends the post-cron deal alert.
type DigestNotifier interface {
	NotifyTopDeals(ctx context.Context) (int, error)
}

type BatchScorer interface {
	ScoreBatch(ctx context.Context, listings []domain.Listing, skipAI bool) scoring.BatchResult
}

// Runner chains scrape, benchmark and scoring passes and records run stats.
type Runner struct {
	Configs      ConfigSource
	Listings     ListingStore
	Scraper      Scraper
	Benchmarks   BenchmarkRecomputer
	Scorer       BatchScorer
	Rates        scoring.RateSource
	Redis        *redis.Client
	Alerts       DigestNotifier
	MaxPages     int
	CronMaxPages int
	Now          func() time.Time
}

// ConfigResult is the outcome of scraping one search config.
type ConfigResult struct {
	ConfigID     uuid.UUID `json:"config_id"`
	ConfigName   string    `json:"config_name"`
	Found        int       `json:"total_found"`
	New          int       `json:"new"`
	Updated      int       `json:"updated"`
	PagesScraped int       `json:"pages_scraped"`
	TotalResults *int      `json:"total_results,omitempty"`
	Errors       []string  `json:"errors"`
	Error        string    `json:"error,omitempty"`
}

type ScrapeResult struct {
	RunID         string         `json:"run_id"`
	Results       []ConfigResult `json:"results"`
	TotalConfigs  int            `json:"total_configs"`
	TotalFound    int            `json:"total_found"`
	TotalUpserted int            `json:"total_upserted"`
}

type ScoreResult struct {
	RunID             string   `json:"run_id"`
	BenchmarksUpdated int      `json:"benchmarks_updated"`
	TotalUnscored     int      `json:"total_unscored"`
	Scored            int      `json:"scored"`
	Errors            int      `json:"errors"`
	ErrorSample       []string `json:"error_sample"`
}

type CronResult struct {
	RunID             string   `json:"run_id"`
	Configs           int      `json:"configs"`
	TotalListings     int      `json:"total_listings"`
	TotalUpserted     int      `json:"total_upserted"`
	New               int      `json:"new"`
	BenchmarksUpdated int      `json:"benchmarks_updated"`
	Scored            int      `json:"scored"`
	Alerted           int      `json:"alerted"`
	Errors            []string `json:"errors"`
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Scrape runs one config (configID set) or every active config and upserts
// what it finds. A config that fails is reported in its result, not returned.
func (r *Runner) Scrape(ctx context.Context, configID *uuid.UUID) (*ScrapeResult, error) {
	started := r.now()
	runID := uuid.NewString()
	pages := r.MaxPages
	if pages <= 0 {
		pages = defaultMaxPages
	}
	errs := errsample.New(errsample.DefaultCap)
	res, err := r.scrape(ctx, runID, configID, pages, errs)
	if err != nil {
		return nil, err
	}
	st := RunStats{RunID: runID, Kind: runKindScrape, StartedAt: started, FinishedAt: r.now(), Scraped: res.TotalFound, Errors: errs.Count(), ErrorSample: errs.Items()}
	for _, c := range res.Results {
		st.New += c.New
		st.Updated += c.Updated
	}
	r.record(ctx, st)
	return res, nil
}

func (r *Runner) scrape(ctx context.Context, runID string, configID *uuid.UUID, maxPages int, errs *errsample.Sample) (*ScrapeResult, error) {
	var cfgs []domain.SearchConfig
	if configID != nil {
		cfg, err := r.Configs.Get(ctx, *configID)
		if err != nil {
			return nil, err
		}
		cfgs = []domain.SearchConfig{*cfg}
	} else {
		active, err := r.Configs.Active(ctx)
		if err != nil {
			return nil, err
		}
		cfgs = active
	}

	out := &ScrapeResult{RunID: runID, Results: []ConfigResult{}, TotalConfigs: len(cfgs)}
	for _, cfg := range cfgs {
		cr := r.scrapeConfig(ctx, runID, cfg, maxPages, errs)
		out.TotalFound += cr.Found
		out.TotalUpserted += cr.New + cr.Updated
		out.Results = append(out.Results, cr)
	}
	return out, nil
}

func (r *Runner) scrapeConfig(ctx context.Context, runID string, cfg domain.SearchConfig, maxPages int, errs *errsample.Sample) ConfigResult {
	cr := ConfigResult{ConfigID: cfg.ID, ConfigName: cfg.Name, Errors: []string{}}
	known, err := r.Listings.ExistingExternalIDs(ctx)
	if err != nil {
		cr.Error = err.Error()
		errs.Addf("Scrape %s: %v", cfg.Name, err)
		return cr
	}
	run, err := r.Scraper.Run(ctx, cfg, scrape.RunOptions{MaxPages: maxPages, KnownIDs: known})
	if err != nil {
		cr.Error = err.Error()
		errs.Addf("Scrape %s: %v", cfg.Name, err)
		log.Error().Str("run_id", runID).Str("config", cfg.Name).Err(err).Msg("Scrape failed")
		return cr
	}
	cr.Found = len(run.Listings)
	cr.PagesScraped = run.PagesScraped
	cr.TotalResults = run.TotalResults
	cr.Errors = run.Errors
	for _, e := range run.Errors {
		errs.Addf("%s: %s", cfg.Name, e)
	}

	configID := cfg.ID
	for _, raw := range run.Listings {
		up, err := r.Listings.UpsertListing(ctx, raw, &configID)
		if err != nil {
			errs.Addf("Upsert %s: %v", raw.ExternalID, err)
			log.Error().Str("run_id", runID).Str("external_id", raw.ExternalID).Err(err).Msg("Upsert failed")
			continue
		}
		if up.Created {
			cr.New++
		} else {
			cr.Updated++
		}
	}
	log.Info().
		Str("run_id", runID).
		Str("config", cfg.Name).
		Int("found", cr.Found).
		Int("new", cr.New).
		Int("pages", cr.PagesScraped).
		Msg("Config scraped")
	return cr
}

// Score refreshes benchmarks and scores every unscored active listing.
func (r *Runner) Score(ctx context.Context, skipAI bool) (*ScoreResult, error) {
	started := r.now()
	runID := uuid.NewString()
	res, err := r.score(ctx, runID, skipAI)
	if err != nil {
		return nil, err
	}
	r.record(ctx, RunStats{RunID: runID, Kind: runKindScore, StartedAt: started, FinishedAt: r.now(), Scored: res.Scored, Errors: res.Errors, ErrorSample: res.ErrorSample})
	return res, nil
}

func (r *Runner) score(ctx context.Context, runID string, skipAI bool) (*ScoreResult, error) {
	eurChf := constants.FallbackEurChf
	if r.Rates != nil {
		eurChf = r.Rates.Rate(ctx)
	}
	updated, err := r.Benchmarks.Recompute(ctx, eurChf)
	if err != nil {
		return nil, err
	}
	unscored, err := r.Listings.UnscoredListings(ctx)
	if err != nil {
		return nil, err
	}
	batch := r.Scorer.ScoreBatch(ctx, unscored, skipAI)
	log.Info().
		Str("run_id", runID).
		Int("benchmarks", updated).
		Int("unscored", len(unscored)).
		Int("scored", batch.Scored).
		Msg("Scoring pass finished")
	return &ScoreResult{
		RunID:             runID,
		BenchmarksUpdated: updated,
		TotalUnscored:     len(unscored),
		Scored:            batch.Scored,
		Errors:            batch.Failed,
		ErrorSample:       batch.Errors,
	}, nil
}

// Cron is the scheduled run: a shallow scrape of active configs, then a full
// scoring pass with AI.
func (r *Runner) Cron(ctx context.Context) (*CronResult, error) {
	started := r.now()
	runID := uuid.NewString()
	pages := r.CronMaxPages
	if pages <= 0 {
		pages = defaultCronMaxPages
	}
	errs := errsample.New(errsample.DefaultCap)
	sr, err := r.scrape(ctx, runID, nil, pages, errs)
	if err != nil {
		return nil, err
	}
	out := &CronResult{RunID: runID, Configs: sr.TotalConfigs, TotalListings: sr.TotalFound, TotalUpserted: sr.TotalUpserted}
	updated := 0
	for _, c := range sr.Results {
		out.New += c.New
		updated += c.Updated
	}

	dropped := 0
	sc, err := r.score(ctx, runID, false)
	if err != nil {
		errs.Addf("Score: %v", err)
	} else {
		dropped = sc.Errors - len(sc.ErrorSample)
		out.BenchmarksUpdated = sc.BenchmarksUpdated
		out.Scored = sc.Scored
		for _, e := range sc.ErrorSample {
			errs.Addf("Score %s", e)
		}
	}
	if r.Alerts != nil {
		n, err := r.Alerts.NotifyTopDeals(ctx)
		if err != nil {
			errs.Addf("Alerts: %v", err)
		}
		out.Alerted = n
	}
	out.Errors = errs.Items()

	r.record(ctx, RunStats{
		RunID: runID, Kind: runKindCron, StartedAt: started, FinishedAt: r.now(),
		Scraped: out.TotalListings, New: out.New, Updated: updated, Scored: out.Scored,
		Errors: errs.Count() + dropped, ErrorSample: out.Errors,
	})
	return out, nil
}
