package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarketBenchmark aggregates asking prices of active listings in one bucket.
// FuelType is "" when the bucket spans all fuel types.
type MarketBenchmark struct {
	ID                      uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Brand                   string    `gorm:"column:brand;not null;uniqueIndex:idx_benchmark_bucket" json:"brand"`
	Model                   string    `gorm:"column:model;not null;uniqueIndex:idx_benchmark_bucket" json:"model"`
	YearFrom                int       `gorm:"column:year_from;not null;uniqueIndex:idx_benchmark_bucket" json:"year_from"`
	YearTo                  int       `gorm:"column:year_to;not null" json:"year_to"`
	MileageRangeMin         int       `gorm:"column:mileage_range_min;not null;uniqueIndex:idx_benchmark_bucket" json:"mileage_range_min"`
	MileageRangeMax         int       `gorm:"column:mileage_range_max;not null" json:"mileage_range_max"`
	FuelType                string    `gorm:"column:fuel_type;not null;default:'';uniqueIndex:idx_benchmark_bucket" json:"fuel_type"`
	MedianPriceEur          int       `gorm:"column:median_price_eur" json:"median_price_eur"`
	P25PriceEur             int       `gorm:"column:p25_price_eur" json:"p25_price_eur"`
	P75PriceEur             int       `gorm:"column:p75_price_eur" json:"p75_price_eur"`
	SampleSize              int       `gorm:"column:sample_size" json:"sample_size"`
	EstimatedChResaleMedian int       `gorm:"column:estimated_ch_resale_median" json:"estimated_ch_resale_median"`
	UpdatedAt               time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (MarketBenchmark) TableName() string {
	return "market_benchmarks"
}

func (b *MarketBenchmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
