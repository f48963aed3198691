package deals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"carimport-backend/internal/application/listings"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	searchPages = 3
	maxResults  = 50
	// Share of the budget left for the purchase price; the rest covers import costs.
	priceShareOfBudget = 0.82
)

var (
	ErrDealNotFound = errors.New("deal not found")
	ErrInvalidDeal  = errors.New("deal needs a name and a positive budget")
)

type ListingStore interface {
	ExistingExternalIDs(ctx context.Context) (map[string]bool, error)
	UpsertListing(ctx context.Context, raw domain.RawListing, configID *uuid.UUID) (*listings.UpsertResult, error)
	ListingsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Listing, error)
	WithScores(ctx context.Context, ids []uuid.UUID) ([]domain.ListingWithScore, error)
}

type Scraper interface {
	Run(ctx context.Context, cfg domain.SearchConfig, opts scrape.RunOptions) (*scrape.RunResult, error)
}

type Scorer interface {
	ScoreListing(ctx context.Context, l *domain.Listing, skipAI bool) (*domain.Score, error)
}

type RateSource interface {
	Rate(ctx context.Context) float64
}

// Service manages budget-constrained searches ("deals").
type Service struct {
	DB       *gorm.DB
	Listings ListingStore
	Scraper  Scraper
	Scorer   Scorer
	Rates    RateSource
	Now      func() time.Time
}

type Input struct {
	Name       string   `json:"name"`
	BudgetChf  int      `json:"budget_chf"`
	Brands     []string `json:"brands"`
	Models     []string `json:"models"`
	YearMin    *int     `json:"year_min"`
	YearMax    *int     `json:"year_max"`
	MileageMax *int     `json:"mileage_max"`
	VatOnly    bool     `json:"vat_only"`
	Notes      string   `json:"notes"`
}

// Result is one stored search hit.
type Result struct {
	Listing     domain.Listing     `json:"listing"`
	Score       *domain.Score      `json:"score"`
	DealListing domain.DealListing `json:"deal_listing"`
}

type SearchResult struct {
	Scraped      int      `json:"scraped"`
	Scored       int      `json:"scored"`
	WithinBudget int      `json:"within_budget"`
	TopResults   int      `json:"top_results"`
	PriceMaxEur  int      `json:"price_max_eur"`
	Errors       []string `json:"errors"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Deal, error) {
	if strings.TrimSpace(in.Name) == "" || in.BudgetChf <= 0 {
		return nil, ErrInvalidDeal
	}
	deal := &domain.Deal{
		Name:             strings.TrimSpace(in.Name),
		BudgetChf:        in.BudgetChf,
		Brands:           datatypes.JSONSlice[string](nonNil(in.Brands)),
		Models:           datatypes.JSONSlice[string](nonNil(in.Models)),
		YearMin:          in.YearMin,
		YearMax:          in.YearMax,
		MileageMax:       in.MileageMax,
		VatOnly:          in.VatOnly,
		Notes:            in.Notes,
		Status:           domain.DealActive,
		PinnedListingIDs: datatypes.JSONSlice[uuid.UUID]{},
	}
	if err := s.DB.WithContext(ctx).Create(deal).Error; err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return deal, nil
}

// List returns active deals, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Deal, error) {
	var out []domain.Deal
	if err := s.DB.WithContext(ctx).Where("status = ?", domain.DealActive).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return &deal, nil
}

func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Deal{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": domain.DealArchived, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("archive deal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDealNotFound
	}
	return nil
}

// TogglePin pins listingID on the deal, or unpins it if already pinned.
func (s *Service) TogglePin(ctx context.Context, dealID, listingID uuid.UUID) ([]uuid.UUID, error) {
	deal, err := s.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	next := make([]uuid.UUID, 0, len(deal.PinnedListingIDs)+1)
	found := false
	for _, id := range deal.PinnedListingIDs {
		if id == listingID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, listingID)
	}
	err = s.DB.WithContext(ctx).Model(&domain.Deal{}).Where("id = ?", dealID).
		Updates(map[string]interface{}{"pinned_listing_ids": datatypes.JSONSlice[uuid.UUID](next), "updated_at": s.now()}).Error
	if err != nil {
		return nil, fmt.Errorf("pin listing: %w", err)
	}
	return next, nil
}

// Results returns the stored hits of the last search, best minimum margin first.
func (s *Service) Results(ctx context.Context, dealID uuid.UUID) ([]Result, error) {
	var rows []domain.DealListing
	if err := s.DB.WithContext(ctx).Where("deal_id = ?", dealID).Order("margin_min_chf DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load deal results: %w", err)
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ListingID
	}
	items, err := s.Listings.WithScores(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.ListingWithScore, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		it, ok := byID[r.ListingID]
		if !ok {
			continue
		}
		out = append(out, Result{Listing: it.Listing, Score: it.Score, DealListing: r})
	}
	return out, nil
}

// SyntheticConfig turns a deal into a search config. The EUR price ceiling
// leaves room for import costs within the CHF budget.
func SyntheticConfig(deal *domain.Deal, eurChf float64) domain.SearchConfig {
	if eurChf <= 0 {
		eurChf = constants.FallbackEurChf
	}
	priceMax := int(math.Round(float64(deal.BudgetChf) / eurChf * priceShareOfBudget))
	return domain.SearchConfig{
		Name:       deal.Name,
		Brands:     deal.Brands,
		Models:     deal.Models,
		YearMin:    deal.YearMin,
		YearMax:    deal.YearMax,
		MileageMax: deal.MileageMax,
		PriceMax:   &priceMax,
		IsActive:   true,
	}
}

type candidate struct {
	listing domain.Listing
	score   *domain.Score
}

// Search scrapes a few pages for the deal, scores the hits without AI and
// stores the ones whose landed cost fits the budget.
func (s *Service) Search(ctx context.Context, dealID uuid.UUID) (*SearchResult, error) {
	deal, err := s.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	eurChf := constants.FallbackEurChf
	if s.Rates != nil {
		eurChf = s.Rates.Rate(ctx)
	}
	cfg := SyntheticConfig(deal, eurChf)
	log.Info().Str("deal_id", deal.ID.String()).Int("budget_chf", deal.BudgetChf).Int("price_max_eur", *cfg.PriceMax).Msg("Deal search started")

	known, err := s.Listings.ExistingExternalIDs(ctx)
	if err != nil {
		return nil, err
	}
	run, err := s.Scraper.Run(ctx, cfg, scrape.RunOptions{MaxPages: searchPages, KnownIDs: known})
	if err != nil {
		return nil, err
	}
	res := &SearchResult{Scraped: len(run.Listings), PriceMaxEur: *cfg.PriceMax, Errors: append([]string{}, run.Errors...)}

	ids := make([]uuid.UUID, 0, len(run.Listings))
	for _, raw := range run.Listings {
		up, err := s.Listings.UpsertListing(ctx, raw, nil)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Upsert %s: %v", raw.ExternalID, err))
			continue
		}
		ids = append(ids, up.ID)
	}
	stored, err := s.Listings.ListingsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var fits []candidate
	for i := range stored {
		l := &stored[i]
		if !l.IsActive {
			continue
		}
		sc, err := s.Scorer.ScoreListing(ctx, l, true)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Score %s: %v", l.ExternalID, err))
			continue
		}
		res.Scored++
		if deal.VatOnly && !l.VatDeductible {
			continue
		}
		if sc.TotalLandedCostChf <= 0 || sc.TotalLandedCostChf > deal.BudgetChf {
			continue
		}
		fits = append(fits, candidate{listing: *l, score: sc})
	}
	res.WithinBudget = len(fits)

	sort.SliceStable(fits, func(i, j int) bool {
		return fits[i].score.EstimatedMarginMinChf > fits[j].score.EstimatedMarginMinChf
	})
	if len(fits) > maxResults {
		fits = fits[:maxResults]
	}
	if err := s.saveResults(ctx, deal.ID, fits); err != nil {
		return nil, err
	}
	res.TopResults = len(fits)
	log.Info().Str("deal_id", deal.ID.String()).Int("scraped", res.Scraped).Int("within_budget", res.WithinBudget).Msg("Deal search finished")
	return res, nil
}

// saveResults replaces the deal's stored hits in one transaction.
func (s *Service) saveResults(ctx context.Context, dealID uuid.UUID, fits []candidate) error {
	now := s.now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deal_id = ?", dealID).Delete(&domain.DealListing{}).Error; err != nil {
			return fmt.Errorf("clear deal results: %w", err)
		}
		if len(fits) > 0 {
			rows := make([]domain.DealListing, len(fits))
			for i, c := range fits {
				rows[i] = domain.DealListing{
					DealID:        dealID,
					ListingID:     c.listing.ID,
					MarginMinChf:  c.score.EstimatedMarginMinChf,
					MarginMaxChf:  c.score.EstimatedMarginMaxChf,
					CombinedScore: c.score.CombinedScore,
					CreatedAt:     now,
				}
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("store deal results: %w", err)
			}
		}
		return tx.Model(&domain.Deal{}).Where("id = ?", dealID).Updates(map[string]interface{}{
			"last_search_at":    now,
			"last_result_count": len(fits),
			"updated_at":        now,
		}).Error
	})
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
