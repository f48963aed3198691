package scoring

import (
	"time"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"
)

const accidentPenalty = -40

// Factors are the additive heuristic components. Raw is the sum before
// clamping; Total is Raw clamped to [0,100].
type Factors struct {
	PriceVsMedian   int `json:"price_vs_median"`
	ListingAge      int `json:"listing_age"`
	SellerType      int `json:"seller_type"`
	MileageAnomaly  int `json:"mileage_anomaly"`
	PriceDrop       int `json:"price_drop"`
	VatDeductible   int `json:"vat_deductible"`
	AccidentPenalty int `json:"accident_penalty"`
	Raw             int `json:"raw"`
	Total           int `json:"total"`
}

// ComputeHeuristic scores a listing against its benchmark (nil when none) as of now.
func ComputeHeuristic(l *domain.Listing, b *domain.MarketBenchmark, now time.Time) Factors {
	f := Factors{
		PriceVsMedian:  scorePriceVsMedian(l, b),
		ListingAge:     scoreListingAge(l, now),
		SellerType:     scoreSellerType(l),
		MileageAnomaly: scoreMileageAnomaly(l, now),
		PriceDrop:      scorePriceDrop(l),
	}
	if l.VatDeductible {
		f.VatDeductible = 15
	}
	if l.HasAccidentDamage {
		f.AccidentPenalty = accidentPenalty
	}
	f.Raw = f.PriceVsMedian + f.ListingAge + f.SellerType + f.MileageAnomaly + f.PriceDrop + f.VatDeductible + f.AccidentPenalty
	f.Total = clamp(f.Raw, 0, 100)
	return f
}

func scorePriceVsMedian(l *domain.Listing, b *domain.MarketBenchmark) int {
	if b == nil || l.PriceEur <= 0 || b.MedianPriceEur <= 0 {
		return 15
	}
	price := float64(l.PriceEur)
	median := float64(b.MedianPriceEur)
	p25 := median * 0.85
	if b.P25PriceEur > 0 {
		p25 = float64(b.P25PriceEur)
	}
	switch {
	case price <= p25:
		return 30
	case price <= median*0.9:
		return 25
	case price <= median*0.95:
		return 20
	case price <= median:
		return 12
	case price <= median*1.05:
		return 5
	}
	return 0
}

func scoreListingAge(l *domain.Listing, now time.Time) int {
	if l.FirstSeenAt.IsZero() {
		return 8
	}
	hours := now.Sub(l.FirstSeenAt).Hours()
	switch {
	case hours < 6:
		return 15
	case hours < 24:
		return 12
	case hours < 72:
		return 8
	case hours < 168:
		return 4
	}
	return 0
}

func scoreSellerType(l *domain.Listing) int {
	switch {
	case l.SellerType == domain.SellerPrivate:
		return 10
	case l.VatDeductible:
		return 8
	}
	return 4
}

func scoreMileageAnomaly(l *domain.Listing, now time.Time) int {
	if l.MileageKm <= 0 || l.FirstRegistrationYear <= 0 {
		return 0
	}
	age := now.Year() - l.FirstRegistrationYear
	if age <= 0 {
		return 5
	}
	kmPerYear := float64(l.MileageKm) / float64(age)
	switch {
	case kmPerYear < 8000:
		return 15
	case kmPerYear < 10000:
		return 10
	case kmPerYear < 12000:
		return 5
	case kmPerYear <= constants.AverageKmPerYear:
		return 0
	case kmPerYear > 25000:
		return -5
	}
	return -2
}

func scorePriceDrop(l *domain.Listing) int {
	if len(l.PriceHistory) < 2 {
		return 0
	}
	first := l.PriceHistory[0].Price
	current := l.PriceEur
	if current <= 0 {
		current = l.PriceHistory[len(l.PriceHistory)-1].Price
	}
	if first <= 0 || current <= 0 {
		return 0
	}
	drop := float64(first-current) / float64(first) * 100
	switch {
	case drop > 15:
		return 15
	case drop > 10:
		return 10
	case drop > 5:
		return 5
	}
	return 0
}

// PriceDeltaPercent is how far the asking price sits above (+) or below (-)
// the benchmark median, 0 without a benchmark.
func PriceDeltaPercent(l *domain.Listing, b *domain.MarketBenchmark) float64 {
	if b == nil || l.PriceEur <= 0 || b.MedianPriceEur <= 0 {
		return 0
	}
	median := float64(b.MedianPriceEur)
	return (float64(l.PriceEur) - median) / median * 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
