package scoring

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"carimport-backend/internal/application/importcost"
	"carimport-backend/internal/application/resale"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"
	"carimport-backend/internal/pkg/errsample"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Store interface {
	UpsertScore(ctx context.Context, s *domain.Score) error
	GetWithScore(ctx context.Context, id uuid.UUID) (*domain.ListingWithScore, error)
}

type BenchmarkLookup interface {
	Lookup(ctx context.Context, brand, model string, year, mileageKm int, fuelType string) (*domain.MarketBenchmark, error)
}

type RateSource interface {
	Rate(ctx context.Context) float64
}

// Service scores listings and persists one Score per listing.
type Service struct {
	Store      Store
	Benchmarks BenchmarkLookup
	Rates      RateSource
	Classifier Classifier
	Params     importcost.Params
	Weights    Weights
	BatchSize  int
	BatchDelay time.Duration
	Now        func() time.Time
}

// BatchResult summarises a bulk scoring pass.
type BatchResult struct {
	Total  int      `json:"total"`
	Scored int      `json:"scored"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// ScoreListing computes and stores a fresh score. With skipAI the AI part is
// the neutral pending analysis.
func (s *Service) ScoreListing(ctx context.Context, l *domain.Listing, skipAI bool) (*domain.Score, error) {
	return s.score(ctx, l, func(b *domain.MarketBenchmark) Analysis {
		if skipAI || s.Classifier == nil {
			return PendingAnalysis()
		}
		return s.Classifier.Analyze(ctx, l, b, false)
	})
}

// Analyze runs the deep AI model for one listing. An existing score keeps
// its heuristic and money fields and only takes the new AI verdict.
func (s *Service) Analyze(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	lws, err := s.Store.GetWithScore(ctx, id)
	if err != nil {
		return nil, err
	}
	l := &lws.Listing
	deep := func(b *domain.MarketBenchmark) Analysis {
		if s.Classifier == nil {
			return PendingAnalysis()
		}
		return s.Classifier.Analyze(ctx, l, b, true)
	}

	if lws.Score == nil {
		sc, err := s.score(ctx, l, deep)
		if err != nil {
			return nil, err
		}
		a := analysisFromScore(sc)
		return &a, nil
	}

	a := deep(s.benchmark(ctx, l))
	sc := lws.Score
	applyAnalysis(sc, a)
	sc.CombinedScore = float64(Combine(int(sc.HeuristicScore), a.Score, s.weights()))
	sc.ScoredAt = s.now()
	if err := s.Store.UpsertScore(ctx, sc); err != nil {
		return nil, fmt.Errorf("store score: %w", err)
	}
	return &a, nil
}

// ScoreBatch scores listings in batches of BatchSize run concurrently, with
// BatchDelay between batch starts. Failures are recorded, never returned.
func (s *Service) ScoreBatch(ctx context.Context, listings []domain.Listing, skipAI bool) BatchResult {
	size := s.BatchSize
	if size < 1 {
		size = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.BatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.BatchDelay), 1)
	}
	errs := errsample.New(errsample.DefaultCap)
	res := BatchResult{Total: len(listings)}
	var scored atomic.Int64

	for start := 0; start < len(listings); start += size {
		if err := limiter.Wait(ctx); err != nil {
			errs.Addf("scoring stopped: %v", err)
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
				if _, err := s.ScoreListing(gctx, l, skipAI); err != nil {
					log.Error().Str("external_id", l.ExternalID).Err(err).Msg("Scoring failed")
					errs.Addf("%s: %v", l.ExternalID, err)
					return nil
				}
				scored.Add(1)
				return nil
			})
		}
		_ = g.Wait()
	}
	res.Scored = int(scored.Load())
	res.Failed = res.Total - res.Scored
	res.Errors = errs.Items()
	return res
}

func (s *Service) score(ctx context.Context, l *domain.Listing, analyze func(*domain.MarketBenchmark) Analysis) (*domain.Score, error) {
	bench := s.benchmark(ctx, l)
	h := ComputeHeuristic(l, bench, s.now())
	a := analyze(bench)

	eurChf := s.rate(ctx)
	grand := 0
	if l.PriceEur > 0 {
		grand = importcost.Calculate(importcost.Input{
			PriceEur:      l.PriceEur,
			VatDeductible: l.VatDeductible,
			EurChf:        eurChf,
			SourceVatRate: l.SourceVatRate,
		}, s.params()).GrandTotalChf
	}

	hint := ""
	if IsPorsche911(l.Title) {
		hint = orDefault(a.VariantClassification, l.Title)
	}
	bracket := resale.Estimate(resale.Input{
		VariantHint:    hint,
		Year:           l.FirstRegistrationYear,
		MileageKm:      l.MileageKm,
		Benchmark:      bench,
		AskingPriceChf: float64(l.PriceEur) * eurChf,
	})
	marginMin, marginMax := Margin(bracket, grand)

	sc := &domain.Score{
		ListingID:             l.ID,
		HeuristicScore:        float64(h.Total),
		CombinedScore:         float64(Combine(h.Total, a.Score, s.weights())),
		PriceDeltaPercent:     PriceDeltaPercent(l, bench),
		EstimatedResaleMinChf: bracket.Low,
		EstimatedResaleMedChf: bracket.Median,
		EstimatedResaleMaxChf: bracket.High,
		ResaleSource:          bracket.Source,
		EstimatedMarginMinChf: marginMin,
		EstimatedMarginMaxChf: marginMax,
		TotalLandedCostChf:    grand,
		ScoredAt:              s.now(),
	}
	applyAnalysis(sc, a)
	if err := s.Store.UpsertScore(ctx, sc); err != nil {
		return nil, fmt.Errorf("store score: %w", err)
	}
	return sc, nil
}

func (s *Service) benchmark(ctx context.Context, l *domain.Listing) *domain.MarketBenchmark {
	if s.Benchmarks == nil || l.FirstRegistrationYear <= 0 || l.MileageKm <= 0 {
		return nil
	}
	b, err := s.Benchmarks.Lookup(ctx, l.Brand(), l.Model(), l.FirstRegistrationYear, l.MileageKm, l.FuelType)
	if err != nil {
		log.Warn().Str("external_id", l.ExternalID).Err(err).Msg("Benchmark lookup failed")
		return nil
	}
	return b
}

func applyAnalysis(sc *domain.Score, a Analysis) {
	sc.AIScore = float64(a.Score)
	sc.AIExplanation = a.Explanation
	sc.RedFlags = a.RedFlags
	sc.Highlights = a.Highlights
	sc.SpecScore = float64(a.SpecScore)
	sc.KeySpecs = a.KeySpecs
	sc.MissingSpecs = a.MissingSpecs
	sc.VariantClassification = a.VariantClassification
}

func analysisFromScore(sc *domain.Score) Analysis {
	return Analysis{
		Score:                 int(sc.AIScore),
		SpecScore:             int(sc.SpecScore),
		Explanation:           sc.AIExplanation,
		RedFlags:              sc.RedFlags,
		Highlights:            sc.Highlights,
		KeySpecs:              sc.KeySpecs,
		MissingSpecs:          sc.MissingSpecs,
		VariantClassification: sc.VariantClassification,
	}
}

func (s *Service) rate(ctx context.Context) float64 {
	if s.Rates == nil {
		return constants.FallbackEurChf
	}
	return s.Rates.Rate(ctx)
}

func (s *Service) params() importcost.Params {
	if s.Params == (importcost.Params{}) {
		return importcost.DefaultParams()
	}
	return s.Params
}

func (s *Service) weights() Weights {
	if s.Weights == (Weights{}) {
		return DefaultWeights()
	}
	return s.Weights
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
