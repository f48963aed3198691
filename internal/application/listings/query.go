package listings

import (
	"context"
	"fmt"
	"strings"

	"carimport-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultTopDeals = 15
)

var sortColumns = map[string]string{
	"combined_score": "scores.combined_score",
	"price":          "listings.price_eur",
	"mileage":        "listings.mileage_km",
	"year":           "listings.first_registration_year",
	"first_seen":     "listings.first_seen_at",
}

// Filter narrows List. Zero values mean "no filter" except OnlyActive.
type Filter struct {
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
	MinScore   *float64
	MaxPrice   *int
	Brand      string
	FuelType   string
	OnlyActive bool
}

type Page struct {
	Listings   []domain.ListingWithScore `json:"listings"`
	Total      int64                     `json:"total"`
	Page       int                       `json:"page"`
	Limit      int                       `json:"limit"`
	TotalPages int                       `json:"total_pages"`
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		f.SortBy = "combined_score"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

// List pages through listings joined with their scores. Unscored listings sort last.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	f.normalize()
	base := func() *gorm.DB {
		q := s.DB.WithContext(ctx).Table("listings").
			Joins("LEFT JOIN scores ON scores.listing_id = listings.id")
		if f.OnlyActive {
			q = q.Where("listings.is_active = ?", true)
		}
		if f.MinScore != nil {
			q = q.Where("scores.combined_score >= ?", *f.MinScore)
		}
		if f.MaxPrice != nil {
			q = q.Where("listings.price_eur <= ?", *f.MaxPrice)
		}
		if f.Brand != "" {
			q = q.Where("LOWER(listings.title) LIKE ?", "%"+strings.ToLower(f.Brand)+"%")
		}
		if f.FuelType != "" {
			q = q.Where("listings.fuel_type = ?", f.FuelType)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}

	order := fmt.Sprintf("%s %s NULLS LAST, listings.id ASC", sortColumns[f.SortBy], strings.ToUpper(f.SortOrder))
	var ids []uuid.UUID
	err := base().
		Order(order).
		Limit(f.Limit).
		Offset((f.Page-1)*f.Limit).
		Pluck("listings.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	items, err := s.WithScores(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &Page{
		Listings:   items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
	}, nil
}

// TopDeals returns the highest combined scores among active, scored listings.
func (s *Service) TopDeals(ctx context.Context, limit int) ([]domain.ListingWithScore, error) {
	if limit < 1 {
		limit = defaultTopDeals
	}
	var ids []uuid.UUID
	err := s.DB.WithContext(ctx).Table("listings").
		Joins("JOIN scores ON scores.listing_id = listings.id").
		Where("listings.is_active = ?", true).
		Order("scores.combined_score DESC, listings.id ASC").
		Limit(limit).
		Pluck("listings.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("top deals: %w", err)
	}
	return s.WithScores(ctx, ids)
}

// WithScores loads listings with their scores, in the order of ids.
func (s *Service) WithScores(ctx context.Context, ids []uuid.UUID) ([]domain.ListingWithScore, error) {
	rows, err := s.ListingsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.attachScores(ctx, rows)
}
