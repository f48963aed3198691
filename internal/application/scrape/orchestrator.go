package scrape

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"carimport-backend/internal/application/extract"
	"carimport-backend/internal/application/fetch"
	"carimport-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxPages  = 10
	defaultCooldown  = 5 * time.Second
	defaultDelayMin  = 2 * time.Second
	defaultDelaySpan = 3 * time.Second
)

// Fetcher is the part of fetch.Client the orchestrator needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error)
}

type RunOptions struct {
	MaxPages int
	// KnownIDs are external ids already persisted; they count as Known.
	KnownIDs map[string]bool
}

type RunResult struct {
	Listings     []domain.RawListing `json:"listings"`
	New          int                 `json:"new"`
	Known        int                 `json:"known"`
	TotalResults *int                `json:"total_results,omitempty"`
	PagesScraped int                 `json:"pages_scraped"`
	Errors       []string            `json:"errors"`
}

// Orchestrator walks the result pages of one search config.
type Orchestrator struct {
	Fetcher      Fetcher
	FetchOptions fetch.Options
	Cooldown     time.Duration
	DelayMin     time.Duration
	DelaySpan    time.Duration
	// Sleep and Jitter are replaced in tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
}

func NewOrchestrator(f Fetcher, opts fetch.Options) *Orchestrator {
	return &Orchestrator{
		Fetcher:      f,
		FetchOptions: opts,
		Cooldown:     defaultCooldown,
		DelayMin:     defaultDelayMin,
		DelaySpan:    defaultDelaySpan,
	}
}

// Run scrapes pages sequentially until the page cap, two empty pages in a
// row, the reported total, or a failed first page. Failures on later pages
// are recorded and skipped.
func (o *Orchestrator) Run(ctx context.Context, cfg domain.SearchConfig, opts RunOptions) (*RunResult, error) {
	if o.Fetcher == nil {
		return nil, ErrNoFetcher
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	res := &RunResult{Errors: []string{}}
	jar := fetch.NewCookieJar()
	var all []domain.RawListing
	emptyStreak := 0

	for page := 1; page <= maxPages; page++ {
		res.PagesScraped = page
		reqOpts := o.FetchOptions
		reqOpts.Cookies = jar.String()

		resp, err := o.Fetcher.Fetch(ctx, BuildSearchURL(cfg, page), reqOpts)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Page %d: %v", page, err))
			log.Error().Str("config", cfg.Name).Int("page", page).Err(err).Msg("Search page failed")
			if page == 1 || ctx.Err() != nil {
				break
			}
			if err := o.sleep(ctx, o.Cooldown); err != nil {
				break
			}
			continue
		}
		jar.Merge(resp.SetCookie)

		result := extract.ParseSearchResults(resp.HTML)
		if page == 1 && result.TotalResults != nil {
			res.TotalResults = result.TotalResults
		}
		log.Info().
			Str("config", cfg.Name).
			Int("page", page).
			Int("found", len(result.Listings)).
			Int("accumulated", len(all)+len(result.Listings)).
			Msg("Search page parsed")

		if len(result.Listings) == 0 {
			emptyStreak++
			if emptyStreak >= 2 {
				break
			}
		} else {
			emptyStreak = 0
			all = append(all, result.Listings...)
			if res.TotalResults != nil && len(all) >= *res.TotalResults {
				break
			}
		}

		if page < maxPages {
			if err := o.sleep(ctx, o.politeDelay()); err != nil {
				break
			}
		}
	}

	res.Listings = Dedup(all)
	for _, l := range res.Listings {
		if opts.KnownIDs[l.ExternalID] {
			res.Known++
		} else {
			res.New++
		}
	}
	return res, nil
}

// Dedup keeps the first listing seen for every external id.
func Dedup(listings []domain.RawListing) []domain.RawListing {
	out := make([]domain.RawListing, 0, len(listings))
	seen := make(map[string]bool, len(listings))
	for _, l := range listings {
		if seen[l.ExternalID] {
			continue
		}
		seen[l.ExternalID] = true
		out = append(out, l)
	}
	return out
}

func (o *Orchestrator) politeDelay() time.Duration {
	j := rand.Float64()
	if o.Jitter != nil {
		j = o.Jitter()
	}
	return o.DelayMin + time.Duration(j*float64(o.DelaySpan))
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	return fetch.SleepContext(ctx, d)
}
