package resale

import (
	"testing"

	"carimport-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_TableMatch(t *testing.T) {
	cases := []struct {
		name   string
		hint   string
		year   int
		km     int
		median int
	}{
		{"tightest covering bracket", "Porsche 911 GT3", 2022, 10000, 250000},
		{"next bracket", "Porsche 911 GT3", 2022, 30000, 225000},
		{"over every ceiling uses the largest", "Porsche 911 GT3", 2022, 90000, 225000},
		{"turbo s beats turbo", "Porsche 911 Turbo S Coupé", 2021, 20000, 230000},
		{"carrera 4s beats carrera", "911 Carrera 4S", 2020, 40000, 115000},
		{"gt3 rs", "Porsche 911 GT3 RS Weissach", 2023, 5000, 330000},
		{"case-insensitive", "PORSCHE 911 TARGA 4", 2021, 1000, 120000},
		{"boundary year spans generations", "Porsche 911 Carrera", 2019, 50000, 76000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Estimate(Input{VariantHint: tc.hint, Year: tc.year, MileageKm: tc.km, AskingPriceChf: 1})
			assert.Equal(t, SourceTable, b.Source)
			assert.Equal(t, tc.median, b.Median)
		})
	}
}

func TestEstimate_BenchmarkBand(t *testing.T) {
	bench := &domain.MarketBenchmark{EstimatedChResaleMedian: 100000}
	b := Estimate(Input{VariantHint: "BMW M3 Competition", Year: 2021, MileageKm: 20000, Benchmark: bench, AskingPriceChf: 70000})
	assert.Equal(t, Bracket{Low: 92000, Median: 100000, High: 108000, Source: SourceBenchmark}, b)
}

func TestEstimate_TableBeatsBenchmark(t *testing.T) {
	bench := &domain.MarketBenchmark{EstimatedChResaleMedian: 1}
	b := Estimate(Input{VariantHint: "Porsche 911 GTS", Year: 2022, MileageKm: 10000, Benchmark: bench})
	assert.Equal(t, SourceTable, b.Source)
	assert.Equal(t, 160000, b.Median)
}

func TestEstimate_Fallback(t *testing.T) {
	b := Estimate(Input{VariantHint: "Audi RS6", Year: 2020, MileageKm: 40000, AskingPriceChf: 50000})
	assert.Equal(t, Bracket{Low: 51520, Median: 56000, High: 60480, Source: SourceFallback}, b)

	b = Estimate(Input{VariantHint: "Porsche 911 GT3", Year: 0, AskingPriceChf: 50000})
	assert.Equal(t, SourceFallback, b.Source)

	b = Estimate(Input{Benchmark: &domain.MarketBenchmark{}, AskingPriceChf: 0})
	assert.Equal(t, Bracket{Source: SourceFallback}, b)
}

func TestEstimate_BracketOrdering(t *testing.T) {
	hints := []string{"", "Porsche 911 GT3 RS", "911 Turbo", "911 Carrera S", "Targa", "Cabrio", "GTS", "VW Golf"}
	for _, hint := range hints {
		for year := 2010; year <= 2026; year += 2 {
			for km := 0; km <= 150000; km += 25000 {
				b := Estimate(Input{VariantHint: hint, Year: year, MileageKm: km, AskingPriceChf: 12345.6})
				assert.LessOrEqual(t, b.Low, b.Median)
				assert.LessOrEqual(t, b.Median, b.High)
			}
		}
	}
}
