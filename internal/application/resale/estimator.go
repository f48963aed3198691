package resale

import (
	"math"
	"strings"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"
)

const (
	SourceTable     = "table"
	SourceBenchmark = "benchmark"
	SourceFallback  = "fallback"

	bandLow  = 0.92
	bandHigh = 1.08
)

type Input struct {
	// VariantHint is a variant classification or a listing title.
	VariantHint    string
	Year           int
	MileageKm      int
	Benchmark      *domain.MarketBenchmark
	AskingPriceChf float64
}

// Bracket is a CH resale range. Low <= Median <= High.
type Bracket struct {
	Low    int    `json:"low"`
	Median int    `json:"median"`
	High   int    `json:"high"`
	Source string `json:"source"`
}

// Estimate tries the curated table, then the benchmark's CH median, then
// the converted asking price with the CH premium.
func Estimate(in Input) Bracket {
	if b, ok := lookup(in.VariantHint, in.Year, in.MileageKm); ok {
		return b
	}
	if in.Benchmark != nil && in.Benchmark.EstimatedChResaleMedian > 0 {
		return band(float64(in.Benchmark.EstimatedChResaleMedian), SourceBenchmark)
	}
	return band(math.Max(in.AskingPriceChf, 0)*constants.CHResalePremium, SourceFallback)
}

func band(median float64, source string) Bracket {
	return Bracket{
		Low:    int(math.Round(median * bandLow)),
		Median: int(math.Round(median)),
		High:   int(math.Round(median * bandHigh)),
		Source: source,
	}
}

// lookup matches rows by alias and year. The longest matching alias wins so
// "turbo s" is not priced as "turbo"; then the tightest mileage ceiling that
// covers km, else the highest ceiling.
func lookup(hint string, year, km int) (Bracket, bool) {
	if hint == "" || year == 0 {
		return Bracket{}, false
	}
	lower := strings.ToLower(hint)

	var matches []tableRow
	best := 0
	for _, row := range porsche911Table {
		if year < row.yearFrom || year > row.yearTo {
			continue
		}
		n := longestAlias(lower, row.aliases)
		switch {
		case n == 0 || n < best:
			continue
		case n > best:
			best = n
			matches = matches[:0]
		}
		matches = append(matches, row)
	}
	if len(matches) == 0 {
		return Bracket{}, false
	}

	var pick *tableRow
	for i := range matches {
		r := &matches[i]
		if km <= r.mileageMax && (pick == nil || r.mileageMax < pick.mileageMax) {
			pick = r
		}
	}
	if pick == nil {
		for i := range matches {
			if pick == nil || matches[i].mileageMax > pick.mileageMax {
				pick = &matches[i]
			}
		}
	}
	return Bracket{Low: pick.low, Median: pick.median, High: pick.high, Source: SourceTable}, true
}

func longestAlias(s string, aliases []string) int {
	n := 0
	for _, a := range aliases {
		if len(a) > n && strings.Contains(s, a) {
			n = len(a)
		}
	}
	return n
}
