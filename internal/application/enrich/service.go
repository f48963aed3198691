package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"carimport-backend/internal/application/extract"
	"carimport-backend/internal/application/fetch"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/errsample"
	"carimport-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 25 * time.Second
	defaultBatchSize = 3
)

type Store interface {
	ActiveListings(ctx context.Context) ([]domain.Listing, error)
	ApplyPatch(ctx context.Context, id uuid.UUID, patch domain.ListingPatch) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error)
}

// Service fetches the detail page of every active listing and stores what
// the search page could not show (VAT, accident history, country).
type Service struct {
	Store      Store
	Fetcher    Fetcher
	Timeout    time.Duration
	BatchSize  int
	BatchDelay time.Duration
}

type Result struct {
	Total    int      `json:"total"`
	Enriched int      `json:"enriched"`
	Errors   int      `json:"errors"`
	Samples  []string `json:"error_samples"`
}

func NewService(store Store, f Fetcher, batchSize int, batchDelay, timeout time.Duration) *Service {
	return &Service{Store: store, Fetcher: f, BatchSize: batchSize, BatchDelay: batchDelay, Timeout: timeout}
}

// Run enriches all active listings. Per-listing failures are counted and
// never stop the pass; only loading the listings can fail it.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if s.Fetcher == nil {
		return nil, fetch.ErrMissingCredentials
	}
	listings, err := s.Store.ActiveListings(ctx)
	if err != nil {
		return nil, err
	}

	size := s.BatchSize
	if size < 1 {
		size = defaultBatchSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.BatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.BatchDelay), 1)
	}

	errs := errsample.New(errsample.DefaultCap)
	var enriched atomic.Int64
	for start := 0; start < len(listings); start += size {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		end := start + size
		if end > len(listings) {
			end = len(listings)
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(size)
		for i := start; i < end; i++ {
			l := &listings[i]
			g.Go(func() error {
				if err := s.EnrichListing(gctx, l); err != nil {
					log.Warn().Str("external_id", l.ExternalID).Err(err).Msg("Enrichment failed")
					errs.Addf("%s: %v", l.ExternalID, err)
					return nil
				}
				enriched.Add(1)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := &Result{
		Total:    len(listings),
		Enriched: int(enriched.Load()),
		Samples:  errs.Items(),
	}
	res.Errors = res.Total - res.Enriched
	log.Info().Int("total", res.Total).Int("enriched", res.Enriched).Int("errors", res.Errors).Msg("Enrichment finished")
	return res, nil
}

// EnrichListing fetches one detail page (single attempt) and applies its overrides.
func (s *Service) EnrichListing(ctx context.Context, l *domain.Listing) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if !validation.IsHTTPURL(l.ListingURL) {
		return fmt.Errorf("invalid listing url %q", l.ListingURL)
	}
	resp, err := s.Fetcher.Fetch(ctx, l.ListingURL, fetch.Options{Timeout: timeout, Retries: 1})
	if err != nil {
		return fmt.Errorf("fetch detail: %w", err)
	}
	detail := extract.ParseDetailPage(resp.HTML)
	patch := detail.Patch()
	if err := s.Store.ApplyPatch(ctx, l.ID, patch); err != nil {
		return fmt.Errorf("store detail: %w", err)
	}
	patch.Apply(l)
	log.Info().
		Str("external_id", l.ExternalID).
		Bool("vat_deductible", l.VatDeductible).
		Str("country", l.Country).
		Msg("Listing enriched")
	return nil
}
