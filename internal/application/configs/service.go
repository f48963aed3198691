package configs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carimport-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrConfigNotFound = errors.New("search config not found")
	ErrInvalidConfig  = errors.New("search config needs a name and at least one brand")
)

type Service struct {
	DB *gorm.DB
}

// Input is the writable part of a search config.
type Input struct {
	Name                 string   `json:"name"`
	Brands               []string `json:"brands"`
	Models               []string `json:"models"`
	YearMin              *int     `json:"year_min"`
	YearMax              *int     `json:"year_max"`
	MileageMax           *int     `json:"mileage_max"`
	PriceMin             *int     `json:"price_min"`
	PriceMax             *int     `json:"price_max"`
	FuelTypes            []string `json:"fuel_types"`
	Transmissions        []string `json:"transmissions"`
	MinExpectedMarginChf *int     `json:"min_expected_margin_chf"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" || len(in.Brands) == 0 {
		return ErrInvalidConfig
	}
	return nil
}

func jsonStrings(v []string) datatypes.JSONSlice[string] {
	if v == nil {
		return datatypes.JSONSlice[string]{}
	}
	return datatypes.JSONSlice[string](v)
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.SearchConfig, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cfg := &domain.SearchConfig{
		Name:                 strings.TrimSpace(in.Name),
		Brands:               jsonStrings(in.Brands),
		Models:               jsonStrings(in.Models),
		YearMin:              in.YearMin,
		YearMax:              in.YearMax,
		MileageMax:           in.MileageMax,
		PriceMin:             in.PriceMin,
		PriceMax:             in.PriceMax,
		FuelTypes:            jsonStrings(in.FuelTypes),
		Transmissions:        jsonStrings(in.Transmissions),
		MinExpectedMarginChf: in.MinExpectedMarginChf,
		IsActive:             true,
	}
	if err := s.DB.WithContext(ctx).Create(cfg).Error; err != nil {
		return nil, fmt.Errorf("create search config: %w", err)
	}
	return cfg, nil
}

func (s *Service) List(ctx context.Context) ([]domain.SearchConfig, error) {
	var out []domain.SearchConfig
	if err := s.DB.WithContext(ctx).Order("created_at ASC, name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list search configs: %w", err)
	}
	return out, nil
}

func (s *Service) Active(ctx context.Context) ([]domain.SearchConfig, error) {
	var out []domain.SearchConfig
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC, name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list active search configs: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.SearchConfig, error) {
	var cfg domain.SearchConfig
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("get search config: %w", err)
	}
	return &cfg, nil
}

// SetActive switches a config in or out of scheduled scraping.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.SearchConfig, error) {
	res := s.DB.WithContext(ctx).Model(&domain.SearchConfig{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("update search config: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrConfigNotFound
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&domain.SearchConfig{})
	if res.Error != nil {
		return fmt.Errorf("delete search config: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}
