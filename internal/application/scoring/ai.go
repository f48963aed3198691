package scoring

import (
	"context"
	"math"

	"carimport-backend/internal/domain"
)

const neutralScore = 50

// Analysis is the AI classifier's verdict on one listing.
type Analysis struct {
	Score                 int              `json:"score"`
	SpecScore             int              `json:"spec_score"`
	Explanation           string           `json:"explanation"`
	RedFlags              []string         `json:"red_flags"`
	Highlights            []string         `json:"highlights"`
	KeySpecs              []domain.KeySpec `json:"key_specs"`
	MissingSpecs          []string         `json:"missing_specs"`
	VariantClassification string           `json:"variant_classification"`
}

// Classifier never fails; implementations return a neutral Analysis instead.
type Classifier interface {
	Analyze(ctx context.Context, l *domain.Listing, b *domain.MarketBenchmark, deep bool) Analysis
}

// PendingAnalysis stands in when AI is disabled or skipped.
func PendingAnalysis() Analysis {
	return neutral("AI analysis pending", "")
}

// UnavailableAnalysis stands in when the AI call or its response failed.
func UnavailableAnalysis(variant string) Analysis {
	return neutral("AI analysis unavailable", variant)
}

func neutral(explanation, variant string) Analysis {
	return Analysis{
		Score:                 neutralScore,
		SpecScore:             neutralScore,
		Explanation:           explanation,
		RedFlags:              []string{},
		Highlights:            []string{},
		KeySpecs:              []domain.KeySpec{},
		MissingSpecs:          []string{},
		VariantClassification: variant,
	}
}

// DisabledClassifier is used when no AI credential is configured.
type DisabledClassifier struct{}

func (DisabledClassifier) Analyze(context.Context, *domain.Listing, *domain.MarketBenchmark, bool) Analysis {
	return PendingAnalysis()
}

// clampScore maps a missing or zero model score to neutral and bounds the rest.
func clampScore(v float64) int {
	if v == 0 {
		return neutralScore
	}
	return clamp(int(math.Round(v)), 0, 100)
}
