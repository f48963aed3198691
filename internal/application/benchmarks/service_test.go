package benchmarks

import (
	"context"
	"testing"
	"time"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db, Now: func() time.Time { return testNow }}
}

func seed(t *testing.T, s *Service, title string, price, year, km int, fuel string, active bool) {
	t.Helper()
	l := &domain.Listing{
		ExternalID:            uuid.NewString(),
		Title:                 title,
		PriceEur:              price,
		FirstRegistrationYear: year,
		MileageKm:             km,
		FuelType:              fuel,
		ListingURL:            "https://example.test",
		IsActive:              true,
	}
	require.NoError(t, s.DB.Create(l).Error)
	if !active {
		require.NoError(t, s.DB.Model(l).Update("is_active", false).Error)
	}
}

func TestRecompute_BucketsWithEnoughSamples(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	// 2019-2020 fall in the 2019 bucket, 10k-45k in the 0 km bucket
	seed(t, s, "Porsche 911 Carrera S", 100000, 2019, 10000, "Benzin", true)
	seed(t, s, "Porsche 911 Carrera S", 110000, 2020, 20000, "Benzin", true)
	seed(t, s, "Porsche 911 Carrera S", 90000, 2020, 45000, "Benzin", true)
	seed(t, s, "Porsche 911 Carrera S", 120000, 2020, 30000, "Benzin", true)
	// too few samples
	seed(t, s, "BMW M3 Competition", 70000, 2021, 10000, "Benzin", true)
	seed(t, s, "BMW M3 Competition", 72000, 2021, 12000, "Benzin", true)
	// inactive and unpriced listings do not count
	seed(t, s, "BMW M3 Competition", 71000, 2021, 11000, "Benzin", false)
	seed(t, s, "BMW M3 Competition", 0, 2021, 11000, "Benzin", true)

	n, err := s.Recompute(ctx, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var rows []domain.MarketBenchmark
	require.NoError(t, s.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	b := rows[0]
	assert.Equal(t, "Porsche", b.Brand)
	assert.Equal(t, "911 Carrera", b.Model)
	assert.Equal(t, 2019, b.YearFrom)
	assert.Equal(t, 2021, b.YearTo)
	assert.Equal(t, 0, b.MileageRangeMin)
	assert.Equal(t, 49999, b.MileageRangeMax)
	assert.Equal(t, "Benzin", b.FuelType)
	assert.Equal(t, 4, b.SampleSize)
	// sorted: 90000 100000 110000 120000
	assert.Equal(t, 110000, b.MedianPriceEur)
	assert.Equal(t, 100000, b.P25PriceEur)
	assert.Equal(t, 120000, b.P75PriceEur)
	// 110000 * 0.95 * 1.12
	assert.Equal(t, 117040, b.EstimatedChResaleMedian)
}

func TestRecompute_ExistingBucketSkipped(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	for _, p := range []int{100000, 110000, 120000} {
		seed(t, s, "Porsche 911 Carrera S", p, 2020, 20000, "Benzin", true)
	}
	_, err := s.Recompute(ctx, 0.95)
	require.NoError(t, err)

	seed(t, s, "Porsche 911 Carrera S", 200000, 2020, 20000, "Benzin", true)
	_, err = s.Recompute(ctx, 0.95)
	require.NoError(t, err)

	var rows []domain.MarketBenchmark
	require.NoError(t, s.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].SampleSize)
	assert.Equal(t, 110000, rows[0].MedianPriceEur)
}

func TestRecompute_NoListings(t *testing.T) {
	s := setupService(t)
	n, err := s.Recompute(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLookup(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	require.NoError(t, s.DB.Create(&domain.MarketBenchmark{
		Brand: "Porsche", Model: "911 Carrera", YearFrom: 2019, YearTo: 2021,
		MileageRangeMin: 0, MileageRangeMax: 49999, FuelType: "Benzin",
		MedianPriceEur: 110000, SampleSize: 4,
	}).Error)

	b, err := s.Lookup(ctx, "porsche", "911", 2020, 30000, "")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 110000, b.MedianPriceEur)

	b, err = s.Lookup(ctx, "Porsche", "911 Carrera", 2021, 49999, "Benzin")
	require.NoError(t, err)
	assert.NotNil(t, b)

	for _, tc := range []struct {
		name  string
		brand string
		model string
		year  int
		km    int
		fuel  string
	}{
		{"other brand", "BMW", "911", 2020, 30000, ""},
		{"year outside", "Porsche", "911", 2022, 30000, ""},
		{"mileage outside", "Porsche", "911", 2020, 50000, ""},
		{"fuel mismatch", "Porsche", "911", 2020, 30000, "Diesel"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b, err := s.Lookup(ctx, tc.brand, tc.model, tc.year, tc.km, tc.fuel)
			require.NoError(t, err)
			assert.Nil(t, b)
		})
	}
}
