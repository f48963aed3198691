package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	yearBucketSize    = 3
	mileageBucketSize = 50000
	minSamples        = 3
	unknownPart       = "Unknown"
)

// Service derives market benchmarks from active listings and looks them up.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

type bucketKey struct {
	brand, model string
	year, km     int
	fuel         string
}

func (k bucketKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", k.brand, k.model, k.year, k.km, k.fuel)
}

// Recompute groups active listings into brand/model/3-year/50k-km/fuel buckets
// and stores one benchmark per bucket with at least three priced listings.
// Buckets that already exist are left untouched. Returns the number of
// qualifying buckets.
func (s *Service) Recompute(ctx context.Context, eurChf float64) (int, error) {
	var active []domain.Listing
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Find(&active).Error; err != nil {
		return 0, fmt.Errorf("load active listings: %w", err)
	}
	if eurChf <= 0 {
		eurChf = constants.FallbackEurChf
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	groups := map[bucketKey][]int{}
	for i := range active {
		l := &active[i]
		if l.PriceEur <= 0 || l.FirstRegistrationYear <= 0 || l.MileageKm <= 0 {
			continue
		}
		k := bucketKey{
			brand: orUnknown(l.Brand()),
			model: orUnknown(l.Model()),
			year:  l.FirstRegistrationYear / yearBucketSize * yearBucketSize,
			km:    l.MileageKm / mileageBucketSize * mileageBucketSize,
			fuel:  l.FuelType,
		}
		groups[k] = append(groups[k], l.PriceEur)
	}

	keys := make([]bucketKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	updated := 0
	for _, k := range keys {
		prices := groups[k]
		if len(prices) < minSamples {
			continue
		}
		sort.Ints(prices)
		n := len(prices)
		median := prices[n/2]
		b := &domain.MarketBenchmark{
			Brand:                   k.brand,
			Model:                   k.model,
			YearFrom:                k.year,
			YearTo:                  k.year + yearBucketSize - 1,
			MileageRangeMin:         k.km,
			MileageRangeMax:         k.km + mileageBucketSize - 1,
			FuelType:                k.fuel,
			MedianPriceEur:          median,
			P25PriceEur:             prices[int(float64(n)*0.25)],
			P75PriceEur:             prices[int(float64(n)*0.75)],
			SampleSize:              n,
			EstimatedChResaleMedian: int(math.Round(float64(median) * eurChf * constants.CHResalePremium)),
			UpdatedAt:               now,
		}
		err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error
		if err != nil {
			log.Warn().Err(err).Str("bucket", k.String()).Msg("benchmark insert failed")
			continue
		}
		updated++
	}
	return updated, nil
}

// Lookup finds the benchmark bucket covering a vehicle. Brand matches
// case-insensitively, model as a substring. An empty fuel matches any bucket.
// Returns nil when no bucket covers it.
func (s *Service) Lookup(ctx context.Context, brand, model string, year, mileageKm int, fuelType string) (*domain.MarketBenchmark, error) {
	q := s.DB.WithContext(ctx).
		Where("LOWER(brand) = ?", strings.ToLower(brand)).
		Where("LOWER(model) LIKE ?", "%"+strings.ToLower(model)+"%").
		Where("year_from <= ? AND year_to >= ?", year, year).
		Where("mileage_range_min <= ? AND mileage_range_max >= ?", mileageKm, mileageKm)
	if fuelType != "" {
		q = q.Where("fuel_type = ?", fuelType)
	}
	var b domain.MarketBenchmark
	if err := q.Order("sample_size DESC").First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup benchmark: %w", err)
	}
	return &b, nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknownPart
	}
	return s
}
